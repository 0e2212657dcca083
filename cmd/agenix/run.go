package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sophialabs/agenix/internal/app"
	"github.com/sophialabs/agenix/internal/domain/testcase"
	"github.com/sophialabs/agenix/internal/infrastructure/usecases"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		names          []string
		failFast       bool
		watch          bool
		receiveTimeout time.Duration
		messageType    string
	)

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Run the YAML tests below dir",
		Long: `Run loads every YAML test below dir (default ./tests), runs them in file
order and prints one line per test. The exit code is non-zero when a test
fails.

Example usage:
  agenix run ./tests
  agenix run --name hello-xml --name order-json
  agenix run --fail-fast --log-level debug
  agenix run --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides []func(*app.Config)
			if len(args) == 1 {
				dir := args[0]
				overrides = append(overrides, func(c *app.Config) { c.RootDir = dir })
			}
			if cmd.Flags().Changed("receive-timeout") {
				overrides = append(overrides, func(c *app.Config) { c.ReceiveTimeout = receiveTimeout })
			}
			if cmd.Flags().Changed("message-type") {
				overrides = append(overrides, func(c *app.Config) { c.DefaultMessageType = messageType })
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := usecases.RunOptions{Names: names, FailFast: failFast}
			out := cmd.OutOrStdout()
			if watch {
				return a.Watch(ctx, opts, func(results []testcase.Result, err error) {
					if err != nil {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
						return
					}
					app.WriteReport(out, results)
				})
			}

			results, err := a.RunTests(ctx, opts)
			if err != nil {
				return err
			}
			if sum := app.WriteReport(out, results); sum.Failure > 0 {
				return errTestsFailed
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&names, "name", nil, "run only the named test (repeatable)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "skip the remaining tests after the first failure")
	cmd.Flags().BoolVar(&watch, "watch", false, "run again whenever a YAML file changes")
	cmd.Flags().DurationVar(&receiveTimeout, "receive-timeout", 0, "timeout of receive actions that declare none")
	cmd.Flags().StringVar(&messageType, "message-type", "", "message type assumed by receive actions that declare none")
	return cmd
}
