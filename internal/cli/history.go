package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/GapReport/internal/emoji"
	"github.com/yildizm/GapReport/internal/formatter"
)

var historyClear bool

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently downloaded reports",
		Long: `Show the most recent downloaded action reports, newest first.

Examples:
  gapreport history
  gapreport history --output json
  gapreport history --clear`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().BoolVar(&historyClear, "clear", false, "forget all recorded downloads")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	ctx := commandContext(cmd)
	svc, err := openServices(ctx, GetGlobalConfig(), log)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	out := cmd.OutOrStdout()
	if historyClear {
		if err := svc.history.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintf(out, "%s Download history cleared\n", emoji.GetEmoji("success"))
		return nil
	}

	entries, err := svc.history.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	f, err := formatter.New(getOutputFormat(), useColor(out))
	if err != nil {
		return err
	}
	output, err := f.FormatHistory(entries)
	if err != nil {
		return fmt.Errorf("failed to format history: %w", err)
	}
	_, err = out.Write(output)
	return err
}
