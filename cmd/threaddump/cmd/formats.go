package cmd

import (
	"github.com/spf13/cobra"

	"github.com/thread-dump-analysis/internal/formatter"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported report formats",
	Run: func(cmd *cobra.Command, args []string) {
		for _, f := range formatter.NewRegistry().Formats() {
			printf("%-6s %-24s %s\n", f, f.ContentType(), f.FileExtension())
		}
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
