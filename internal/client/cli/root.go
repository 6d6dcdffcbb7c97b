package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/models"
)

// AppFactory builds the App on first use, after flags are parsed.
type AppFactory func(ctx context.Context, cfg *config.Config) (*App, error)

// session keeps one App across the commands of a process.
type session struct {
	cfg     *config.Config
	factory AppFactory
	app     *App
	inShell bool
}

func (s *session) App(ctx context.Context) (*App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := s.factory(ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func (s *session) Close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

// run adapts a command body that needs the App to cobra's RunE.
func (s *session) run(fn func(cmd *cobra.Command, args []string, a *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := s.App(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, args, a)
	}
}

// Execute runs the client with args and returns the process exit code.
func Execute(ctx context.Context, args []string, out io.Writer) int {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	s := &session{cfg: cfg, factory: NewApp}
	defer s.Close()

	root := newRootCommand(s)
	root.SetArgs(liftNegativeIDs(args))
	root.SetOut(out)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCommand(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldsync",
		Short: "Offline-first client for activity calendars",
		Long: `fieldsync keeps activity calendars editable without a network connection.

Import reference data and calendars once with "import", edit calendars
locally, then push them with "sync" when the server is reachable.`,
		SilenceUsage: true,
	}
	config.BindFlags(root.PersistentFlags(), s.cfg)

	root.AddCommand(
		newImportCommand(s),
		newListCommand(s),
		newShowCommand(s),
		newSaveCommand(s),
		newCopyCommand(s),
		newSyncCommand(s),
		newDeleteCommand(s),
		newTrashCommand(s),
		newReplayCommand(s),
		newStatusCommand(s),
		newVersionCommand(),
	)
	if !s.inShell {
		root.AddCommand(newShellCommand(s))
	}
	return root
}

// liftNegativeIDs moves local ids such as "-5" behind "--" so they are read
// as arguments instead of shorthand flags.
func liftNegativeIDs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	var ids []string
	for i, a := range args {
		if a == "--" {
			ids = append(ids, args[i+1:]...)
			break
		}
		if isNegativeInt(a) {
			ids = append(ids, a)
			continue
		}
		out = append(out, a)
	}
	if len(ids) == 0 {
		return out
	}
	return append(append(out, "--"), ids...)
}

func isNegativeInt(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid calendar id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDate(s string) (models.Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return models.NewDate(t), nil
}

// parseLookback reads periods like "15d", "1w", "3 months" or "2y".
func parseLookback(s string) (models.Lookback, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 {
		return models.Lookback{}, fmt.Errorf("invalid period %q", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return models.Lookback{}, fmt.Errorf("invalid period %q", s)
	}

	var unit models.PeriodUnit
	switch strings.TrimSuffix(strings.TrimSpace(s[i:]), "s") {
	case "d", "day":
		unit = models.PeriodDay
	case "w", "week":
		unit = models.PeriodWeek
	case "m", "month":
		unit = models.PeriodMonth
	case "y", "year":
		unit = models.PeriodYear
	default:
		return models.Lookback{}, fmt.Errorf("invalid period unit in %q", s)
	}
	return models.Lookback{Duration: n, Unit: unit}, nil
}
