package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the agent library",
	}

	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentShowCmd())
	cmd.AddCommand(newAgentCreateCmd())
	cmd.AddCommand(newAgentDeleteCmd())
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var (
		domainFlag string
		sub        string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents, grouped by domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				out := cmd.OutOrStdout()
				if domainFlag != "" {
					d := domain.DomainValue(domainFlag)
					if _, ok := domain.LookupDomain(d); !ok {
						return &domain.ValidationError{Field: "domain", Message: fmt.Sprintf("unknown domain %q", domainFlag)}
					}
					agents := rt.catalog.AgentsByDomain(d)
					if sub != "" {
						agents = rt.catalog.AgentsBySubCategory(d, sub)
					}
					for _, a := range agents {
						printAgentLine(out, a)
					}
					return nil
				}

				for _, g := range rt.catalog.Groups() {
					if g.Count == 0 {
						continue
					}
					fmt.Fprintf(out, "%s %s (%d)\n", g.Domain.Emoji, g.Domain.Label, g.Count)
					for _, sg := range g.SubGroups {
						for _, a := range sg.Agents {
							printAgentLine(out, a)
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&domainFlag, "domain", "", "only list agents in this domain")
	cmd.Flags().StringVar(&sub, "sub", "", "only list agents in this sub-category (requires --domain)")
	return cmd
}

func printAgentLine(w io.Writer, a domain.Agent) {
	sub := a.SubCategory
	if sub == "" {
		sub = "-"
	}
	fmt.Fprintf(w, "  %-36s %s %-44s %-12s model=%s\n", a.ID, a.Emoji, a.Name, sub, a.DefaultModel)
}

func newAgentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				a, err := rt.store.Agent(args[0])
				if err != nil {
					return err
				}
				printAgent(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
}

func printAgent(w io.Writer, a domain.Agent) {
	fmt.Fprintf(w, "%s %s\n", a.Emoji, a.Name)
	fmt.Fprintf(w, "  ID:            %s\n", a.ID)
	fmt.Fprintf(w, "  Domain:        %s\n", a.Domain)
	if a.SubCategory != "" {
		fmt.Fprintf(w, "  Sub-category:  %s\n", a.SubCategory)
	}
	fmt.Fprintf(w, "  Default model: %s\n", a.DefaultModel)
	fmt.Fprintf(w, "  Description:   %s\n", a.Description)
	fmt.Fprintln(w, "  System prompt:")
	for _, line := range strings.Split(a.SystemPrompt, "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

func newAgentCreateCmd() *cobra.Command {
	var in domain.AgentInput
	var (
		domainFlag string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an agent to the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Domain = domain.DomainValue(domainFlag)
			in.DefaultModel = domain.ModelID(model)
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				a, err := rt.store.CreateAgent(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", a.Name, a.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Role, "role", "", "agent role, e.g. \"SEO Specialist\"")
	cmd.Flags().StringVar(&in.Specialization, "specialization", "", "what the agent focuses on")
	cmd.Flags().StringVar(&domainFlag, "domain", "", "domain (marketing, engineering, design, content, business)")
	cmd.Flags().StringVar(&in.SubCategory, "sub", "", "sub-category within the domain")
	cmd.Flags().StringVar(&in.Emoji, "emoji", "", "emoji shown next to the agent")
	cmd.Flags().StringVar(&in.Description, "description", "", "one-line description")
	cmd.Flags().StringVar(&in.SystemPrompt, "prompt", "", "system prompt")
	cmd.Flags().StringVar(&model, "model", "", "default model")
	return cmd
}

func newAgentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Remove an agent from the library and from every project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				if err := rt.store.DeleteAgent(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}
