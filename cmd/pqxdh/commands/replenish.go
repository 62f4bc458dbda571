package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func replenishCmd() *cobra.Command {
	var (
		count int
		user  string
	)
	cmd := &cobra.Command{
		Use:   "replenish",
		Short: "Generate more one-time pre-keys and republish the bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := username(user)
			if err != nil {
				return err
			}
			if count <= 0 {
				count = cfg.OneTimeCount
			}

			added, err := wire.PreKeys.Replenish(cfg.Passphrase, count)
			if err != nil {
				return err
			}
			bundle, err := wire.PreKeys.Bundle(cfg.Passphrase, name)
			if err != nil {
				return err
			}
			if err := wire.Dir.PublishBundle(cmd.Context(), bundle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d one-time pre-keys (%d unclaimed)\n", len(added), len(bundle.OneTimePreKeys))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "one-time pre-keys to add (default one-time-count)")
	cmd.Flags().StringVar(&user, "username", "", "your username (default: the registered one)")
	return cmd
}
