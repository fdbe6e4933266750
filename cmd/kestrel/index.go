package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrelsearch/kestrel/core/index"
	"github.com/kestrelsearch/kestrel/core/store"
)

func newIndexCmd() *cobra.Command {
	var input string
	var maxBufferedDocs int
	var ramBufferMB float64

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Bulk-load NDJSON documents into the index directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r *os.File
			if input == "" || input == "-" {
				r = os.Stdin
			} else {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			dir, err := store.NewFSDirectory(directoryPath)
			if err != nil {
				return err
			}
			defer dir.Close()

			cfg := index.NewIndexWriterConfig(
				index.WithMaxBufferedDocs(maxBufferedDocs),
				index.WithRAMBufferSizeMB(ramBufferMB),
				index.WithLogger(logger),
			)
			w, err := index.Open(dir, cfg)
			if err != nil {
				return err
			}

			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			count := 0
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				var raw map[string]string
				if err := json.Unmarshal([]byte(line), &raw); err != nil {
					w.Close(false)
					return fmt.Errorf("line %d: %w", count+1, err)
				}
				doc := documentFromJSON(raw)
				if err := w.AddDocument(doc); err != nil {
					w.Close(false)
					return err
				}
				count++
			}
			if err := scanner.Err(); err != nil {
				w.Close(false)
				return err
			}

			if err := w.Commit(nil); err != nil {
				return err
			}
			if err := w.Close(true); err != nil {
				return err
			}
			logger.Info("bulk load complete", zap.Int("documents", count))
			fmt.Printf("indexed %d documents into %s\n", count, directoryPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "NDJSON file to load (- for stdin)")
	cmd.Flags().IntVar(&maxBufferedDocs, "max-buffered-docs", index.DefaultMaxBufferedDocs, "flush after this many buffered docs (0 disables)")
	cmd.Flags().Float64Var(&ramBufferMB, "ram-buffer-mb", index.DefaultRAMBufferSizeMB, "flush after this many MB buffered")
	return cmd
}

// documentFromJSON treats every JSON field as an indexed, stored text
// field, whitespace-tokenized: analysis proper is an external
// collaborator outside this module's scope, so bulk loading plays
// that role with the simplest possible tokenizer.
func documentFromJSON(fields map[string]string) *index.Document {
	doc := &index.Document{}
	for name, value := range fields {
		words := strings.Fields(value)
		tokens := make([]index.Token, len(words))
		pos := 0
		for i, word := range words {
			tokens[i] = index.Token{Text: strings.ToLower(word), PositionIncr: 1, StartOffset: pos, EndOffset: pos + len(word)}
			pos += len(word) + 1
		}
		doc.Add(index.NewTextField(name, value, tokens))
	}
	return doc
}
