package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

func newListCommand(s *session) *cobra.Command {
	var (
		program string
		vessels []int64
		year    int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l", "ls"},
		Short:   "List local and remote calendars",
		Args:    cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
			filter := models.CalendarFilter{ProgramLabel: program, VesselIDs: vessels}
			if year > 0 {
				filter.StartDate = models.NewDate(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
				filter.EndDate = models.NewDate(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
			}

			list, err := a.calendars.LoadAll(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printCalendars(cmd.OutOrStdout(), list)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&program, "program", "p", "", "program label")
	f.Int64SliceVar(&vessels, "vessel", nil, "vessel id, repeatable")
	f.IntVarP(&year, "year", "y", 0, "calendar year")
	return cmd
}

func printCalendars(out io.Writer, list []*models.Calendar) {
	if len(list) == 0 {
		fmt.Fprintln(out, "no calendars")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tYEAR\tPROGRAM\tVESSEL\tSTATUS\tUPDATED")
	for _, c := range list {
		status := string(c.SynchronizationStatus)
		if c.IsLocal() {
			status = "LOCAL"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\n", c.ID, c.Year, c.ProgramLabel(), c.VesselID, status, c.UpdateDate)
	}
	_ = w.Flush()
}

func newShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a calendar as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string, a *App) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.calendars.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}),
	}
}

func newSaveCommand(s *session) *cobra.Command {
	var (
		file  string
		local bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a calendar read from a JSON file",
		Long: `Saves the calendar in --file. Calendars with a local id, or any calendar
with --local, stay in the local cache until "sync". Others are saved on the
server, or kept locally as DIRTY when it cannot be reached.`,
		Args: cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			c, err := models.Decode[models.Calendar](data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}

			save := a.calendars.Save
			if local {
				save = a.calendars.SaveLocally
			}
			saved, err := save(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved calendar %d\n", saved.ID)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "calendar JSON file")
	cmd.Flags().BoolVar(&local, "local", false, "keep the calendar local")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCopyCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a calendar into a new local calendar",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string, a *App) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			src, err := a.calendars.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			c, err := a.calendars.CopyLocally(cmd.Context(), src, false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied calendar %d to %d\n", id, c.ID)
			return nil
		}),
	}
}

func newSyncCommand(s *session) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync [local-id...]",
		Short: "Push local calendars to the server",
		Long:  `Synchronizes the given local calendars, or every local calendar with --all.`,
		RunE: s.run(func(cmd *cobra.Command, args []string, a *App) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if all || len(args) == 0 {
				saved, err := a.calendars.SynchronizeAll(ctx)
				for _, c := range saved {
					fmt.Fprintf(out, "synchronized calendar %d\n", c.ID)
				}
				return err
			}

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				c, err := a.calendars.SynchronizeByID(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "calendar %d synchronized as %d\n", id, c.ID)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&all, "all", false, "synchronize every local calendar")
	return cmd
}
