package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/thecafe/internal/config"
	"github.com/soyeahso/thecafe/internal/gateway"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		bind    string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long: "Serve the agent library over HTTP and WebSocket. Every request is gated by the " +
			"shared password configured at auth.password.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.ValidateServe)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if offline {
				cfg.Models.Offline = true
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// --log-level wins over the config file.
			serveLog := log
			if logLevel == "" {
				l, closer, err := logging.Open(logging.Options{
					Level: cfg.Logging.Level,
					Style: cfg.Logging.ConsoleStyle,
					File:  cfg.Logging.File,
				})
				if err != nil {
					return fmt.Errorf("opening log: %w", err)
				}
				defer closer.Close()
				serveLog = l
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openApp(ctx, cfg, serveLog, appOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			st := rt.store.Stats()
			serveLog.Info().
				Int("agents", st.Agents).
				Int("projects", st.Projects).
				Int("conversations", st.Conversations).
				Strs("providers", rt.models.List()).
				Msg("library loaded")

			opts := []gateway.ServerOption{
				gateway.WithHooks(rt.hooks),
				gateway.WithModels(rt.models),
			}
			if rt.db != nil {
				opts = append(opts, gateway.WithSearch(rt.db))
			}

			srv := gateway.New(cfg, gateway.Deps{
				Store:   rt.store,
				Catalog: rt.catalog,
				Engine:  rt.engine,
				Drafter: rt.drafter,
				Chats:   rt.chats,
			}, serveLog, opts...)
			defer srv.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "thecafe listening on %s\n", gateway.ResolveBindAddr(cfg.Gateway))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, auto, custom)")
	cmd.Flags().BoolVar(&offline, "offline", false, "answer every model with the echo provider")
	return cmd
}
