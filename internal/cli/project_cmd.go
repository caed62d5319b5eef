package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectShowCmd())
	cmd.AddCommand(newProjectCreateCmd())
	cmd.AddCommand(newProjectAddCmd())
	cmd.AddCommand(newProjectRemoveCmd())
	cmd.AddCommand(newProjectDeleteCmd())
	return cmd
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				out := cmd.OutOrStdout()
				projects := rt.store.Projects()
				if len(projects) == 0 {
					fmt.Fprintln(out, "no projects")
					return nil
				}
				for _, p := range projects {
					fmt.Fprintf(out, "  %-36s %s %-28s agents=%d conversations=%d\n",
						p.ID, p.Emoji, p.Name, p.AgentCount, p.ConversationCount)
				}
				return nil
			})
		},
	}
}

func newProjectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its agents and conversations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				p, err := rt.store.Project(args[0])
				if err != nil {
					return err
				}
				agents, err := rt.store.ProjectAgents(p.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printProject(out, p)
				fmt.Fprintln(out, "  Agents:")
				for _, a := range agents {
					printAgentLine(out, a)
				}
				fmt.Fprintln(out, "  Conversations:")
				for _, c := range rt.store.Conversations(p.ID) {
					title := c.Title
					if title == "" {
						title = "(untitled)"
					}
					fmt.Fprintf(out, "  %-36s %-40s messages=%d\n", c.ID, title, len(c.Messages))
				}
				return nil
			})
		},
	}
}

func printProject(w io.Writer, p domain.Project) {
	fmt.Fprintf(w, "%s %s\n", p.Emoji, p.Name)
	fmt.Fprintf(w, "  ID:          %s\n", p.ID)
	if p.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", p.Description)
	}
	fmt.Fprintf(w, "  Color:       %s\n", p.Color)
}

func newProjectCreateCmd() *cobra.Command {
	var in domain.ProjectInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				p, err := rt.store.CreateProject(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with %d agent(s)\n", p.Name, p.ID, p.AgentCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().StringVar(&in.Description, "description", "", "project description")
	cmd.Flags().StringVar(&in.Emoji, "emoji", "", "project emoji")
	cmd.Flags().StringVar(&in.Color, "color", "", "project color, e.g. #8b4049")
	cmd.Flags().StringSliceVar(&in.AgentIDs, "agent", nil, "agent to include (repeatable)")
	return cmd
}

func newProjectAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <project-id> <agent-id>...",
		Short: "Add agents to a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				p, err := rt.store.AddAgentsToProject(cmd.Context(), args[0], args[1:])
				if err != nil && p.ID == "" {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s now has %d agent(s)\n", p.Name, p.AgentCount)
				var nf *domain.NotFoundError
				if errors.As(err, &nf) {
					fmt.Fprintf(out, "skipped unknown agents: %v\n", err)
				}
				return nil
			})
		},
	}
}

func newProjectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <project-id> <agent-id>",
		Short: "Remove an agent from a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				p, err := rt.store.RemoveAgentFromProject(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d agent(s)\n", p.Name, p.AgentCount)
				return nil
			})
		},
	}
}

func newProjectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project; its conversations are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				if err := rt.store.DeleteProject(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}
