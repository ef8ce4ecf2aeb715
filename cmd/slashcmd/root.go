package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	runtimesvc "github.com/lexcodex/slashcmd/internal/runtime"
)

// cli holds flag values and the resolved configuration for one command tree.
type cli struct {
	workspace string
	cfgFile   string
	logPath   string
	workers   int
	absolute  bool
	verbose   bool

	cfg runtimesvc.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "slashcmd",
		Short:         "Run assistant slash commands against a workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.workspace, "workspace", "", "Workspace directory")
	flags.StringVar(&c.cfgFile, "config", "", "Path to config.yaml")
	flags.StringVar(&c.logPath, "log", "", "Log file path")
	flags.IntVar(&c.workers, "workers", 0, "Background worker count")
	flags.BoolVar(&c.absolute, "absolute-paths", false, "Print absolute paths in command output")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Mirror log output to stderr")

	root.AddCommand(
		newRunCmd(c),
		newListCmd(c),
		newCompleteCmd(c),
		newHistoryCmd(c),
		newShellCmd(c),
		newConfigCmd(c),
	)
	return root
}

// loadConfig layers defaults, config.yaml and explicitly set flags.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	base := runtimesvc.DefaultConfig()
	if c.workspace != "" {
		abs, err := filepath.Abs(c.workspace)
		if err != nil {
			return err
		}
		base.Workspace = abs
		base.ConfigPath = ""
		base.LogPath = ""
		base.TranscriptPath = ""
	}
	if c.cfgFile == "" {
		c.cfgFile = filepath.Join(base.Workspace, ".slashcmd", "config.yaml")
	}
	cfg, err := runtimesvc.LoadConfig(c.cfgFile, base)
	if err != nil {
		return err
	}
	cfg.ConfigPath = c.cfgFile
	flags := cmd.Flags()
	if flags.Changed("log") {
		cfg.LogPath = c.logPath
	}
	if flags.Changed("workers") {
		cfg.BackgroundWorkers = c.workers
	}
	if flags.Changed("absolute-paths") {
		cfg.PreferRelativePaths = !c.absolute
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// withRuntime starts a runtime for the duration of fn.
func (c *cli) withRuntime(cmd *cobra.Command, fn func(context.Context, *runtimesvc.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var opts []runtimesvc.Option
	if c.verbose {
		opts = append(opts, runtimesvc.WithConsole(os.Stderr))
	}
	rt, err := runtimesvc.New(c.cfg, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Start(ctx)
	return fn(ctx, rt)
}
