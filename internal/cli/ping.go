package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/GapReport/internal/backend"
	"github.com/yildizm/GapReport/internal/emoji"
)

func newPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the analysis backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetGlobalConfig()
			log := newLogger(cmd.ErrOrStderr())
			defer func() { _ = log.Sync() }()

			client, err := backend.New(backendConfig(cfg), backend.WithLogger(log))
			if err != nil {
				return fmt.Errorf("failed to create backend client: %w", err)
			}

			start := time.Now()
			status, err := client.HealthCheck(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("backend at %s is unreachable: %s", client.BaseURL(), backend.DiagnosticOf(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s (%s)\n",
				emoji.GetEmoji("network"), client.BaseURL(), status.Status,
				time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
