package main

import (
	"fmt"

	"github.com/spf13/cobra"

	runtimesvc "github.com/lexcodex/slashcmd/internal/runtime"
)

// newConfigCmd registers subcommands that inspect or mutate config.yaml.
func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify config.yaml",
	}
	cmd.AddCommand(newConfigGetCmd(c), newConfigSetCmd(c), newConfigInitCmd(c))
	return cmd
}

// newConfigGetCmd prints the value referenced by a dotted key.
func newConfigGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Read a config value by dotted key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readConfigMap(c.cfg.ConfigPath)
			if err != nil {
				return err
			}
			value, ok := getConfigValue(data, args[0])
			if !ok {
				return fmt.Errorf("key %s not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyValue(value))
			return nil
		},
	}
}

// newConfigSetCmd updates a dotted key and validates the result before
// writing it back.
func newConfigSetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Update a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.ConfigPath
			data, err := readConfigMap(path)
			if err != nil {
				return err
			}
			if err := setConfigValue(data, args[0], parseValue(args[1])); err != nil {
				return err
			}
			if err := validateConfigMap(data, c.cfg.Workspace); err != nil {
				return err
			}
			if err := writeConfigMap(path, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}

// newConfigInitCmd writes the resolved configuration to config.yaml.
func newConfigInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runtimesvc.SaveConfig(c.cfg.ConfigPath, c.cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", c.cfg.ConfigPath)
			return nil
		},
	}
}
