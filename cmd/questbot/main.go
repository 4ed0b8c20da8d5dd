// Command questbot runs the quest engine against a local console that
// stands in for the chat platform.
//
// Usage:
//
//	questbot play [--plain] [--actor id]
//	questbot script <file>
//	questbot version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		dotenv string
		actor  string
		trace  bool
	)
	root := &cobra.Command{
		Use:           "questbot",
		Short:         "Narrative quest engine with a local console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dotenv, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&actor, "actor", "", "actor id to play as (overrides QUESTBOT_ACTOR_ID)")
	root.PersistentFlags().BoolVar(&trace, "trace", false, "print quest events after each reply")

	open := func(cmd *cobra.Command) (*app, error) {
		a, err := newApp(cmd.Context(), appOptions{
			dotenv: dotenv,
			actor:  actor,
			stderr: cmd.ErrOrStderr(),
		})
		if err != nil {
			return nil, err
		}
		a.session.Trace = trace
		return a, nil
	}

	root.AddCommand(newPlayCommand(open), newScriptCommand(open), newVersionCommand())
	return root
}

func newPlayCommand(open func(*cobra.Command) (*app, error)) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			// Fall back to the plain console when stdout is not a terminal.
			if plain || !isTerminal() {
				c := a.console()
				c.Out = cmd.OutOrStdout()
				c.Run(cmd.Context())
				return nil
			}
			return a.tui(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line console instead of the full-screen UI")
	return cmd
}

func newScriptCommand(open func(*cobra.Command) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file>",
		Short: "Play back console input from a file, echoing each line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c := a.console()
			c.In = f
			c.Out = cmd.OutOrStdout()
			c.EchoInput = true
			c.Run(cmd.Context())
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "questbot %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
