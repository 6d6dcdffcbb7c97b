package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

func newDeleteCommand(s *session) *cobra.Command {
	var noTrash bool

	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete calendars",
		Long:    `Local calendars go to the trash unless --no-trash is set.`,
		Args:    cobra.MinimumNArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string, a *App) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			cals := make([]*models.Calendar, 0, len(ids))
			for _, id := range ids {
				c, err := a.calendars.Load(cmd.Context(), id)
				if err != nil {
					return err
				}
				cals = append(cals, c)
			}
			if err := a.calendars.Delete(cmd.Context(), cals, !noTrash); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d calendar(s)\n", len(cals))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&noTrash, "no-trash", false, "do not keep deleted local calendars in the trash")
	return cmd
}

func newTrashCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Manage deleted local calendars",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the trash",
			Args:  cobra.NoArgs,
			RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
				entries, err := a.calendars.ListTrash(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "trash is empty")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TRASH ID\tDELETED\tID\tYEAR\tPROGRAM\tVESSEL")
				for _, e := range entries {
					c := e.Calendar
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\n",
						e.TrashID, e.DeletedAt.Format("2006-01-02 15:04"), c.ID, c.Year, c.ProgramLabel(), c.VesselID)
				}
				return w.Flush()
			}),
		},
		&cobra.Command{
			Use:   "restore <trash-id>",
			Short: "Restore a calendar from the trash as a new local calendar",
			Args:  cobra.ExactArgs(1),
			RunE: s.run(func(cmd *cobra.Command, args []string, a *App) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid trash id %q: %w", args[0], err)
				}
				c, err := a.calendars.RestoreFromTrash(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored calendar %d\n", c.ID)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "purge [trash-id...]",
			Short: "Remove entries from the trash, all of them without arguments",
			RunE: s.run(func(cmd *cobra.Command, args []string, a *App) error {
				ids := make([]uuid.UUID, 0, len(args))
				for _, arg := range args {
					id, err := uuid.Parse(arg)
					if err != nil {
						return fmt.Errorf("invalid trash id %q: %w", arg, err)
					}
					ids = append(ids, id)
				}
				n, err := a.calendars.PurgeTrash(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d trash entr(ies)\n", n)
				return nil
			}),
		},
	)
	return cmd
}
