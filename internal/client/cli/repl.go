package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// dispatcher runs one shell line split into arguments.
type dispatcher interface {
	Dispatch(ctx context.Context, args []string) error
}

// runREPL reads lines from scanner and hands them to d until EOF or until
// the user types "exit" or "quit". Errors are printed and the loop goes on.
//
// The prompt shows the connectivity mode returned by statusFn.
func runREPL(ctx context.Context, d dispatcher, statusFn func() string, scanner *bufio.Scanner, out io.Writer) {
	for {
		fmt.Fprintf(out, "fieldsync %s> ", statusFn())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			fmt.Fprintln(out, "Available commands: import, (l)ist, show, save, copy, sync, delete, trash, replay, status, exit")
			fmt.Fprintln(out, "Use '<command> --help' for details.")

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			if err := d.Dispatch(ctx, parts); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// shellDispatcher runs each line through a fresh command tree so flag values
// never leak from one line to the next. The App is shared.
type shellDispatcher struct {
	s   *session
	out io.Writer
}

func (d *shellDispatcher) Dispatch(ctx context.Context, args []string) error {
	root := newRootCommand(d.s)
	root.SetArgs(liftNegativeIDs(args))
	root.SetOut(d.out)
	root.SetErr(d.out)
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

const defaultCheckInterval = 3 * time.Second

func newShellCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell that tracks server connectivity",
		Long: `Starts a shell running the other commands. The server is probed every
--interval and mutations recorded offline are replayed when it comes back.`,
		Args: cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string, a *App) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			interval := s.cfg.OnlineCheckInterval
			if interval <= 0 {
				interval = defaultCheckInterval
			}
			go a.StartOnlineStatusWatcher(ctx, interval)

			s.inShell = true
			defer func() { s.inShell = false }()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "fieldsync shell (type 'help' for commands)")
			runREPL(ctx, &shellDispatcher{s: s, out: out}, a.status, bufio.NewScanner(cmd.InOrStdin()), out)
			return nil
		}),
	}
}
