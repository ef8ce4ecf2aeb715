package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	runtimesvc "github.com/lexcodex/slashcmd/internal/runtime"
	"github.com/lexcodex/slashcmd/internal/tui"
)

// newRunCmd opens the requested tabs and runs one slash command against the
// last one opened.
func newRunCmd(c *cli) *cobra.Command {
	var (
		files    []string
		settings bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run [command] [argument...]",
		Short: "Run a slash command (default /outline)",
		Example: `  slashcmd run --open README.md
  slashcmd run outline --open main.go --absolute-paths`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "outline"
			if len(args) > 0 {
				name = strings.TrimPrefix(args[0], "/")
			}
			var argument string
			if len(args) > 1 {
				argument = strings.Join(args[1:], " ")
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				for _, file := range files {
					if _, err := rt.OpenFile(ctx, file); err != nil {
						return err
					}
				}
				if settings {
					if err := rt.OpenSettings(ctx); err != nil {
						return err
					}
				}
				out, err := rt.Invoke(ctx, name, argument)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(out)
				}
				fmt.Fprint(cmd.OutOrStdout(), out.Text)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&files, "open", nil, "Files to open as tabs; the last one is active")
	cmd.Flags().BoolVar(&settings, "settings", false, "Open the settings tab last")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full command output as JSON")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered slash commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tDESCRIPTION\tARGUMENT")
				for _, command := range rt.Commands() {
					arg := "none"
					if command.RequiresArgument() {
						arg = "required"
					}
					fmt.Fprintf(w, "/%s\t%s\t%s\n", command.Name(), command.Description(), arg)
				}
				return w.Flush()
			})
		},
	}
}

func newCompleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <command> [query]",
		Short: "Ask a slash command for argument completions",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 2 {
				query = args[1]
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				completions, err := rt.Complete(ctx, args[0], query)
				if err != nil {
					return err
				}
				for _, completion := range completions {
					fmt.Fprintln(cmd.OutOrStdout(), completion.Label)
				}
				return nil
			})
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show persisted command output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				entries, err := rt.History(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, entry := range entries {
					title := "/" + entry.Command
					if entry.Argument != "" {
						title += " " + entry.Argument
					}
					fmt.Fprintf(out, "%s %s %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.ID, title)
					fmt.Fprint(out, entry.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of most recent entries to show (0 for all)")
	return cmd
}

func newShellCmd(c *cli) *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive slash command shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				for _, file := range files {
					if _, err := rt.OpenFile(ctx, file); err != nil {
						return err
					}
				}
				return tui.Run(ctx, rt, c.cfg.Workspace)
			})
		},
	}
	cmd.Flags().StringSliceVar(&files, "open", nil, "Files to open before the shell starts")
	return cmd
}
