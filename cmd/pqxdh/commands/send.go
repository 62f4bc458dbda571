package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <peer> <message>: run a handshake with <peer> and deliver the message
// in its payload.
func sendCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a first message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := username(user)
			if err != nil {
				return err
			}
			if err := wire.Messages.Send(cmd.Context(), cfg.Passphrase, from, args[0], []byte(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "username", "", "your username (default: the registered one)")
	return cmd
}
