package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelsearch/kestrel/core/index"
	"github.com/kestrelsearch/kestrel/core/store"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report segment and document counts for the index directory",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			commit := reader.Commit()
			fmt.Printf("generation: %d\n", commit.Generation())
			fmt.Printf("segments: %d\n", len(reader.Leaves()))
			fmt.Printf("max doc: %d\n", reader.MaxDoc())
			fmt.Printf("live docs: %d\n", reader.NumDocs())
			fmt.Printf("deleted docs: %d\n", reader.NumDeletedDocs())
			for _, leaf := range reader.Leaves() {
				fmt.Printf("  segment %s: maxDoc=%d numDocs=%d\n",
					leaf.Reader.Info.Info.Name, leaf.Reader.MaxDoc(), leaf.Reader.NumDocs())
			}
			return nil
		},
	}
}
