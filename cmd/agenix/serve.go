package main

import (
	"github.com/spf13/cobra"

	"github.com/sophialabs/agenix/internal/app"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		port         int
		publishRate  float64
		publishBurst int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the in-memory queues over HTTP",
		Long: `Serve starts the queue bridge. A system under test publishes with
POST /queues/{queue}/messages and consumes with GET on the same path;
/__admin offers queue listings, the message trace and settings reload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The bridge runs no YAML tests.
			overrides := []func(*app.Config){func(c *app.Config) { c.RootDir = "" }}
			if cmd.Flags().Changed("port") {
				overrides = append(overrides, func(c *app.Config) { c.Port = port })
			}
			if cmd.Flags().Changed("publish-rate") {
				overrides = append(overrides, func(c *app.Config) { c.PublishRate = publishRate })
			}
			if cmd.Flags().Changed("publish-burst") {
				overrides = append(overrides, func(c *app.Config) { c.PublishBurst = publishBurst })
			}

			store, err := g.store(cmd, overrides...)
			if err != nil {
				return err
			}
			a, err := app.New(store, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", app.DefaultConfig().Port, "HTTP server port")
	cmd.Flags().Float64Var(&publishRate, "publish-rate", 0, "messages per second each queue accepts (0 = unlimited)")
	cmd.Flags().IntVar(&publishBurst, "publish-burst", 0, "burst size of the publish limit")
	return cmd
}
