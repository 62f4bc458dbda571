package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// recv: fetch and decrypt queued messages.
func recvCmd() *cobra.Command {
	var (
		user  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := username(user)
			if err != nil {
				return err
			}
			msgs, err := wire.Messages.Receive(cmd.Context(), cfg.Passphrase, me, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range msgs {
				ts := time.Unix(m.Timestamp, 0).Format(time.RFC3339)
				if m.Degraded {
					fmt.Fprintf(out, "%s [%s] (degraded session, payload unreadable)\n", ts, m.From)
					continue
				}
				fmt.Fprintf(out, "%s [%s] %s\n", ts, m.From, m.Plaintext)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "username", "", "your username (default: the registered one)")
	cmd.Flags().IntVar(&limit, "limit", 0, "fetch at most this many messages (0 for all)")
	return cmd
}
