// Package main provides the kestrel command-line tool: bulk-loading
// NDJSON documents into a Directory and running structured (not
// query-string) searches against it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	directoryPath string
	logger        *zap.Logger
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kestrel: "+err.Error())
		os.Exit(1)
	}
}

func execute() error {
	root := &cobra.Command{
		Use:           "kestrel",
		Short:         "Segmented inverted-index engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&directoryPath, "dir", "./kestrel-index", "index directory")

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatsCmd())

	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
	defer logger.Sync()

	return root.Execute()
}
