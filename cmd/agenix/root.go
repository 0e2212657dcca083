package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sophialabs/agenix/internal/app"
)

// errTestsFailed makes the process exit non-zero once the report is
// printed.
var errTestsFailed = errors.New("tests failed")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	settings string
	logLevel string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "agenix",
		Short: "Script and run asynchronous message exchange tests",
		Long: `agenix sends messages to endpoints, receives messages from them and
validates payloads and headers against control messages. Tests are written
as YAML files; the queue bridge lets a system under test publish to and
consume from the in-memory queues over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.settings, "settings", "", "YAML settings file, reloaded when it changes")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(g), newServeCmd(g))
	return root
}

// store builds the config store: defaults, then the settings file, then the
// flags the user set explicitly.
func (g *globalFlags) store(cmd *cobra.Command, overrides ...func(*app.Config)) (*app.ConfigStore, error) {
	base := app.DefaultConfig()
	base.SettingsFile = g.settings
	if cmd.Flags().Changed("log-level") {
		level := g.logLevel
		overrides = append(overrides, func(c *app.Config) { c.LogLevel = level })
	}

	store := app.NewConfigStore(base, overrides...)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}
