package cli

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fieldsync/internal/client/importer"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

func newImportCommand(s *session) *cobra.Command {
	var (
		program     string
		vessels     []int64
		period      string
		since       string
		skipHistory bool
		retries     uint64
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import reference data and calendars for offline work",
		Long: `Downloads the program, its reference data, the vessels and the calendars
recorded for them. Without filter flags the filter of the previous import is
reused.`,
		Args: cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var filter models.OfflineFilter
			if !cmd.Flags().Changed("program") && !cmd.Flags().Changed("vessel") &&
				!cmd.Flags().Changed("period") && !cmd.Flags().Changed("since") {
				saved, ok, err := a.settings.OfflineFilter(ctx, settings.FeatureActivityCalendar)
				if err != nil {
					return err
				}
				if ok {
					filter = saved
				}
			} else {
				filter.ProgramLabel = program
				if len(vessels) == 1 {
					filter.VesselID = vessels[0]
				} else {
					filter.VesselIDs = vessels
				}
				if since != "" {
					d, err := parseDate(since)
					if err != nil {
						return err
					}
					filter.StartDate = d
				}
				if period != "" {
					lb, err := parseLookback(period)
					if err != nil {
						return err
					}
					filter.PeriodDuration, filter.PeriodUnit = lb.Duration, lb.Unit
				}
			}

			opts := importer.Options{SkipHistorical: skipHistory, MaxRetries: retries}
			var last importer.Progress
			shown := -1
			for p := range a.importer.Execute(ctx, filter, opts) {
				if pct := int(math.Round(p.Fraction * 100)); pct != shown {
					fmt.Fprintf(out, "import %3d%%\n", pct)
					shown = pct
				}
				last = p
			}
			for _, w := range last.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
			if last.Err != nil {
				return last.Err
			}
			fmt.Fprintln(out, "import complete")
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&program, "program", "p", "", "program label")
	f.Int64SliceVar(&vessels, "vessel", nil, "vessel id, repeatable")
	f.StringVar(&period, "period", "", `lookback window such as "1w", "3m" or "1y"`)
	f.StringVar(&since, "since", "", "start date YYYY-MM-DD, wins over --period")
	f.BoolVar(&skipHistory, "skip-history", false, "do not import existing calendars")
	f.Uint64Var(&retries, "retries", 0, "retries per step (default 3)")
	return cmd
}
