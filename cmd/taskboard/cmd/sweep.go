package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	taskboard "go.pilab.hu/taskboard"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Purge expired authorization codes and access tokens once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx, false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		// Sessions live in the server process, so there are none to sweep here.
		res, err := taskboard.NewSweeper(store, store, nil, appLogger).SweepOnce(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "removed %d authorization codes and %d access tokens\n", res.AuthCodes, res.Tokens)
		return nil
	},
}
