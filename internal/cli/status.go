package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/thecafe/internal/config"
	"github.com/soyeahso/thecafe/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show thecafe status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", version.Info())

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}
			paths.Resolve(&cfg)

			fmt.Fprintf(out, "Gateway: addr=%s tls=%v\n", bindSummary(cfg.Gateway), cfg.Gateway.TLS.Enabled)
			auth := "not configured (serve will refuse to start)"
			if cfg.Auth.Password != "" {
				auth = fmt.Sprintf("password set, cookie=%s maxAge=%dd", cfg.Auth.CookieName, cfg.Auth.MaxAgeDays)
			}
			fmt.Fprintf(out, "Auth:    %s\n", auth)

			storeDesc := cfg.Store.Driver
			if cfg.Store.Driver != "memory" {
				storeDesc += " " + paths.StorePath(&cfg)
			}
			fmt.Fprintf(out, "Store:   %s\n", storeDesc)

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
				return nil
			}

			rt, err := openApp(cmd.Context(), cfg, log, appOptions{})
			if err != nil {
				fmt.Fprintf(out, "Library: error opening: %v\n", err)
				return nil
			}
			defer rt.Close()

			providers := rt.models.List()
			fmt.Fprintf(out, "Models:  default=%s providers=%s\n", cfg.Models.Default, strings.Join(providers, ", "))
			if rt.db != nil {
				if v, err := rt.db.SchemaVersion(); err == nil {
					fmt.Fprintf(out, "Schema:  v%d\n", v)
				}
			}
			st := rt.store.Stats()
			fmt.Fprintf(out, "Library: agents=%d projects=%d conversations=%d messages=%d\n",
				st.Agents, st.Projects, st.Conversations, st.Messages)
			for _, g := range rt.catalog.Groups() {
				fmt.Fprintf(out, "  %s %-12s %d\n", g.Domain.Emoji, g.Domain.Label, g.Count)
			}
			return nil
		},
	}

	return cmd
}

func bindSummary(g config.GatewayConfig) string {
	host := g.Bind
	if g.Bind == "custom" {
		host = g.CustomBindHost
	}
	return fmt.Sprintf("%s:%d", host, g.Port)
}
