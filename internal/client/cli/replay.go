package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fieldsync/internal/buildinfo"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
)

func newReplayCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Send the mutations recorded while offline",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
			n, err := a.calendars.ReplayPending(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d mutation(s)\n", n)
			return err
		}),
	}
}

func newStatusCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and offline data state",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			mode := ModeOffline
			if a.transport.Online(ctx) {
				mode = ModeOnline
			}
			fmt.Fprintf(out, "server:     %s (%s)\n", a.config.ServerEndpointAddr, mode)

			synced, err := a.settings.FeatureSyncedAt(ctx, settings.FeatureActivityCalendar)
			if err != nil {
				return err
			}
			if synced.IsZero() {
				fmt.Fprintln(out, "last import: never")
			} else {
				fmt.Fprintf(out, "last import: %s\n", synced.Format("2006-01-02 15:04:05"))
			}
			if f, ok, err := a.settings.OfflineFilter(ctx, settings.FeatureActivityCalendar); err != nil {
				return err
			} else if ok {
				fmt.Fprintf(out, "program:    %s\n", f.ProgramLabel)
			}

			pending, err := a.repos.Mutations.List(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "pending:    %d mutation(s)\n", len(pending))
			return nil
		}),
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}
