package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "snapbot",
	Short: "snapbot posts archived snapshots of newly linked pages as comments.",
	Long: `snapbot polls a link aggregation site for submissions pointing at the
configured domain, renders each linked page to an image, uploads it to an
image host and replies with the image link. Configuration comes from the
environment or a .env file.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runBot,
}

func init() {
	rootCmd.AddCommand(processedCmd)
}
