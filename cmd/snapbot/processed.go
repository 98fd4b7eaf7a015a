package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/snapbot/pkg/config"
	"github.com/user/snapbot/pkg/logger"
)

var processedCmd = &cobra.Command{
	Use:   "processed",
	Short: "Lists every URL the bot has already handled.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("could not load config: %w", err)
		}
		// Logs go to stderr so stdout stays a clean URL list.
		log, err := logger.New("error")
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		state, err := store.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not load session state: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, u := range state.Processed {
			fmt.Fprintln(out, u)
		}
		return nil
	},
}
