package cli

import (
	"github.com/soyeahso/thecafe/internal/config"
	"github.com/soyeahso/thecafe/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	homeDir  string
	logLevel string

	// set by the root command before any subcommand runs
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thecafe",
		Short: "thecafe: a library of AI agents with topic-driven recommendations",
		Long: "thecafe keeps a library of specialised AI agents, groups them into projects, " +
			"recommends the right agents for a topic and chats with them through the configured model providers.\n\n" +
			"State lives under ~/.thecafe (override with --home or THECAFE_HOME).",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if homeDir != "" {
				paths = config.PathsAt(homeDir)
			} else {
				p, err := config.ResolvePaths()
				if err != nil {
					return err
				}
				paths = p
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			// Commands other than serve stay quiet unless asked.
			level := logLevel
			if level == "" {
				level = "warn"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVar(&homeDir, "home", "", "state directory (default ~/.thecafe)")
	pf.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(
		newServeCmd(),
		newAgentCmd(),
		newProjectCmd(),
		newRecommendCmd(),
		newChatCmd(),
		newConfigCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
