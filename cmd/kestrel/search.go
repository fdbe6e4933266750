package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelsearch/kestrel/core/index"
	"github.com/kestrelsearch/kestrel/core/search"
	"github.com/kestrelsearch/kestrel/core/store"
)

func newSearchCmd() *cobra.Command {
	var mustTerms []string
	var shouldTerms []string
	var mustNotTerms []string
	var limit int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a structured term/boolean query against the index",
		Long: "Builds a BooleanQuery from --must/--should/--must-not term flags " +
			"(each formatted field:text); this is a structured query API, not a " +
			"query-string parser.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(mustTerms)+len(shouldTerms)+len(mustNotTerms) == 0 {
				return fmt.Errorf("at least one of --must, --should, --must-not is required")
			}

			dir, err := store.NewFSDirectory(directoryPath)
			if err != nil {
				return err
			}
			defer dir.Close()

			reader, err := index.OpenDirectoryReader(dir)
			if err != nil {
				return err
			}
			defer reader.Close()

			bq := search.NewBooleanQuery()
			if err := addClauses(bq, mustTerms, search.Must); err != nil {
				return err
			}
			if err := addClauses(bq, shouldTerms, search.Should); err != nil {
				return err
			}
			if err := addClauses(bq, mustNotTerms, search.MustNot); err != nil {
				return err
			}

			searcher := search.NewSearcher(reader, search.DefaultSimilarity{})
			collector := search.NewTopDocsCollector(limit)
			if err := searcher.Search(bq, collector); err != nil {
				return err
			}

			top := collector.TopDocs()
			fmt.Printf("%d hits\n", top.TotalHits)
			for _, sd := range top.ScoreDocs {
				fields, err := reader.Document(sd.Doc)
				if err != nil {
					return err
				}
				fmt.Printf("doc=%d score=%.4f %s\n", sd.Doc, sd.Score, formatFields(fields))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&mustTerms, "must", nil, "field:text term every hit must match (repeatable)")
	cmd.Flags().StringArrayVar(&shouldTerms, "should", nil, "field:text term that contributes to the score (repeatable)")
	cmd.Flags().StringArrayVar(&mustNotTerms, "must-not", nil, "field:text term no hit may match (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	return cmd
}

func addClauses(bq *search.BooleanQuery, raw []string, occur search.Occur) error {
	for _, spec := range raw {
		t, err := parseFieldTerm(spec)
		if err != nil {
			return err
		}
		bq.Add(search.NewTermQuery(t), occur)
	}
	return nil
}

func parseFieldTerm(spec string) (index.Term, error) {
	field, text, found := strings.Cut(spec, ":")
	if !found {
		return index.Term{}, fmt.Errorf("expected field:text, got %q", spec)
	}
	return index.NewTerm(field, strings.ToLower(text)), nil
}

func formatFields(fields map[string][]byte) string {
	parts := make([]string, 0, len(fields))
	for name, value := range fields {
		parts = append(parts, fmt.Sprintf("%s=%q", name, string(value)))
	}
	return strings.Join(parts, " ")
}
