package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/thecafe/internal/recommend"
	"github.com/spf13/cobra"
)

func newRecommendCmd() *cobra.Command {
	var (
		projectID string
		generate  bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <topic>...",
		Short: "Suggest agents for a topic and report missing expertise",
		Long: "Score the library against a topic. With --project only project members are " +
			"suggested and gaps are relative to the project. --generate drafts the first gap " +
			"into a new agent.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := recommend.Query{Topic: strings.Join(args, " "), ProjectID: projectID}
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				res, err := rt.engine.Analyze(cmd.Context(), q)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printResult(out, res)

				if !generate {
					return nil
				}
				if len(res.Missing) == 0 {
					fmt.Fprintln(out, "no gaps to generate")
					return nil
				}
				agent, err := rt.drafter.Promote(cmd.Context(), rt.store, res.Missing[0], projectID)
				if agent.ID == "" {
					return err
				}
				fmt.Fprintf(out, "\ncreated %s %s (%s)\n", agent.Emoji, agent.Name, agent.ID)
				if err != nil {
					fmt.Fprintf(out, "warning: %v\n", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "evaluate against this project")
	cmd.Flags().BoolVar(&generate, "generate", false, "create an agent for the first gap")
	return cmd
}

func printResult(w io.Writer, res recommend.Result) {
	fmt.Fprintf(w, "Keywords: %s\n", strings.Join(res.Keywords, ", "))

	fmt.Fprintln(w, "\nSuggested agents:")
	if len(res.Suggestions) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range res.Suggestions {
		fmt.Fprintf(w, "  %3d  %s %-44s %s\n", s.MatchScore, s.Agent.Emoji, s.Agent.Name, s.MatchReason)
	}

	fmt.Fprintln(w, "\nMissing expertise:")
	if len(res.Missing) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, m := range res.Missing {
		fmt.Fprintf(w, "  %s %-44s %s\n", m.Emoji, m.SuggestedName, m.Reasoning)
	}
}
