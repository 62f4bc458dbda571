package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pqxdh/internal/domain"
)

// register <username>: rotate the signed and Kyber pre-keys, add a batch of
// one-time pre-keys and publish the result.
func registerCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Generate pre-keys and publish your bundle to the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if count <= 0 {
				count = cfg.OneTimeCount
			}

			bundle, err := wire.PreKeys.GenerateAndStore(cfg.Passphrase, count)
			if err != nil {
				return err
			}
			bundle.Username = name

			if err := wire.Dir.PublishBundle(cmd.Context(), bundle); err != nil {
				return err
			}
			if err := wire.Profile.SaveProfile(domain.Profile{Username: name, Directory: cfg.Directory}); err != nil {
				return err
			}

			log.Info("bundle published",
				zap.String("username", name),
				zap.Uint32("signed_pre_key_id", uint32(bundle.SignedPreKey.ID)),
				zap.Uint32("kyber_pre_key_id", uint32(bundle.KyberPreKey.ID)),
				zap.Int("one_time_pre_keys", len(bundle.OneTimePreKeys)))
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with %d one-time pre-keys\n", name, len(bundle.OneTimePreKeys))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "one-time pre-keys to generate (default one-time-count)")
	return cmd
}
