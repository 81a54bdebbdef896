package bloomy

import (
	"context"
	"fmt"
	"io"
	"strings"

	entrypoint "github.com/louisbranch/bloomy/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/bloomy/internal/platform/grpc"
	"github.com/louisbranch/bloomy/internal/platform/timeouts"
	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/spf13/cobra"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var httpAddr, healthAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, the notification stream and reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rt.cfg
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("health-addr") {
				cfg.HealthAddr = healthAddr
			}
			return entrypoint.RunWithTelemetry(cmd.Context(), entrypoint.ServiceServer, entrypoint.RunOptions{
				Telemetry: cfg.Telemetry,
				Logger:    rt.logger,
			}, func(ctx context.Context) error {
				return app.Run(ctx, cfg, rt.options()...)
			})
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "API listen address")
	cmd.Flags().StringVar(&healthAddr, "health-addr", "", "gRPC health listen address")
	return cmd
}

func newHealthCommand(rt *runtime) *cobra.Command {
	var component string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server's gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			component = strings.TrimSpace(component)
			if err := platformgrpc.Probe(cmd.Context(), rt.cfg.HealthAddr, component, timeouts.GRPCDial, rt.logger); err != nil {
				return err
			}
			name := component
			if name == "" {
				name = "bloomy"
			}
			return rt.emit(map[string]string{"component": name, "status": "SERVING"}, func(w io.Writer) {
				fmt.Fprintf(w, "%s\tSERVING\n", name)
			})
		},
	}
	cmd.Flags().StringVar(&component, "component", "", fmt.Sprintf("component to probe (%s, %s)", app.HealthStore, app.HealthReminders))
	return cmd
}

func newSeedCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users when they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt.cfg.SeedDemo = false
			return rt.withApp(cmd, func(ctx context.Context, a *app.App) error {
				created, err := a.Directory.Seed(ctx)
				if err != nil {
					return err
				}
				return rt.emit(map[string]int{"created": created}, func(w io.Writer) {
					fmt.Fprintf(w, "created %d demo users\n", created)
				})
			})
		},
	}
}
