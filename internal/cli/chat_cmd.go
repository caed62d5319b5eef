package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/soyeahso/thecafe/internal/conversation"
	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/llm"
	"github.com/soyeahso/thecafe/internal/recommend"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to agents and browse conversations",
	}

	cmd.AddCommand(newChatSendCmd())
	cmd.AddCommand(newChatListCmd())
	cmd.AddCommand(newChatShowCmd())
	cmd.AddCommand(newChatSearchCmd())
	return cmd
}

func newChatSendCmd() *cobra.Command {
	var (
		conversationID string
		agentID        string
		projectID      string
		model          string
		timeout        time.Duration
		noSuggest      bool
	)

	cmd := &cobra.Command{
		Use:   "send <message>...",
		Short: "Send a message and print the reply",
		Long: "Send a message to an existing conversation (--conversation) or start a new one " +
			"with an agent (--agent). The first message of a conversation also prints the " +
			"recommended agents for its topic.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if conversationID == "" && agentID == "" {
				return errors.New("either --conversation or --agent is required")
			}
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			// The topic handler runs inside AppendUserMessage, after the
			// app is open.
			var engine *recommend.Engine
			opts := appOptions{}
			if !noSuggest {
				opts.topics = func(ctx context.Context, t conversation.Topic) {
					res, err := engine.Analyze(ctx, recommend.Query{Topic: t.Text, ProjectID: t.ProjectID})
					if err != nil {
						log.Warn().Err(err).Msg("topic analysis failed")
						return
					}
					printResult(out, res)
					fmt.Fprintln(out)
				}
			}

			return withApp(cmd.Context(), opts, func(rt *app) error {
				engine = rt.engine
				ctx := cmd.Context()

				if conversationID == "" {
					c, err := rt.store.CreateConversation(ctx, domain.ConversationInput{
						AgentID:   agentID,
						ProjectID: projectID,
						Model:     domain.ModelID(model),
					})
					if err != nil {
						return err
					}
					conversationID = c.ID
					fmt.Fprintf(out, "conversation %s\n\n", c.ID)
				} else if model != "" {
					if _, err := rt.chats.SetModel(ctx, conversationID, domain.ModelID(model)); err != nil {
						return err
					}
				}

				turn, err := rt.chats.AppendUserMessage(ctx, conversationID, text)
				if err != nil {
					return err
				}

				waitCtx := ctx
				if timeout > 0 {
					var cancel context.CancelFunc
					waitCtx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}
				reply, err := turn.Wait(waitCtx)
				if err != nil {
					var pe *llm.ProviderError
					if errors.As(err, &pe) {
						return fmt.Errorf("%s did not answer: %w", pe.Provider, err)
					}
					return err
				}

				agent, err := rt.store.Agent(conversationAgent(rt, conversationID))
				if err == nil {
					fmt.Fprintf(out, "%s %s (%s):\n", agent.Emoji, agent.Name, reply.Model)
				}
				fmt.Fprintln(out, reply.Content)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue this conversation")
	cmd.Flags().StringVar(&agentID, "agent", "", "start a new conversation with this agent")
	cmd.Flags().StringVar(&projectID, "project", "", "project for a new conversation")
	cmd.Flags().StringVar(&model, "model", "", "model to use from this message on")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting for the reply after this long")
	cmd.Flags().BoolVar(&noSuggest, "no-suggest", false, "do not print agent suggestions for a new topic")
	return cmd
}

func conversationAgent(rt *app, id string) string {
	c, err := rt.store.Conversation(id)
	if err != nil {
		return ""
	}
	return c.AgentID
}

func newChatListCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				out := cmd.OutOrStdout()
				convs := rt.store.Conversations(projectID)
				if len(convs) == 0 {
					fmt.Fprintln(out, "no conversations")
					return nil
				}
				for _, c := range convs {
					title := c.Title
					if title == "" {
						title = "(untitled)"
					}
					fmt.Fprintf(out, "  %-36s %-40s model=%-16s messages=%d updated=%s\n",
						c.ID, title, c.CurrentModel, len(c.Messages), c.UpdatedAt.Local().Format(time.DateTime))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "only list conversations in this project")
	return cmd
}

func newChatShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				c, err := rt.store.Conversation(args[0])
				if err != nil {
					return err
				}
				printTranscript(cmd.OutOrStdout(), c)
				return nil
			})
		},
	}
}

func printTranscript(w io.Writer, c domain.Conversation) {
	if c.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", c.Title)
	}
	for _, m := range c.Messages {
		who := "you"
		if m.Role == domain.RoleAssistant {
			who = string(m.Model)
		}
		fmt.Fprintf(w, "[%s] %s:\n%s\n\n", m.Timestamp.Local().Format(time.DateTime), who, m.Content)
	}
}

func newChatSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Full-text search across every transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(rt *app) error {
				if rt.db == nil {
					return errors.New("search requires the sqlite store")
				}
				hits, err := rt.db.SearchMessages(cmd.Context(), strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(hits) == 0 {
					fmt.Fprintln(out, "no matches")
					return nil
				}
				for _, h := range hits {
					fmt.Fprintf(out, "  %s  %-9s %s\n", h.ConversationID, h.Message.Role, h.Snippet)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of matches")
	return cmd
}
