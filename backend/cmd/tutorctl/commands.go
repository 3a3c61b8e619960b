package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tchaikovic/NeuroGym/backend/internal/conversation"
)

// ============================================================================
// topics
// ============================================================================

func (c *cli) topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List and resolve shared topics",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every canonical topic in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topics, err := c.sm.Topics.ListTopics(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED BY\tCREATED AT")
			for _, t := range topics {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedBy, t.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	var user string
	resolve := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a topic name to its canonical topic, creating it if new",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.sm.Resolver.Resolve(cmd.Context(), strings.Join(args, " "), user)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	resolve.Flags().StringVar(&user, "user", "", "learner email to link the topic to")

	cmd.AddCommand(list, resolve)
	return cmd
}

// defaultSeedTopics are the starter subjects offered to new learners
var defaultSeedTopics = []string{"Mathematics", "Biology", "World History", "English Grammar", "Python Programming"}

func (c *cli) seedCmd() *cobra.Command {
	var topics []string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create starter topics; names matching an existing topic are reused",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOPIC\tID\tSTATUS")
			for _, name := range topics {
				res, err := c.sm.Resolver.Resolve(cmd.Context(), name, "")
				if err != nil {
					return fmt.Errorf("seed %q: %w", name, err)
				}
				status := "existing"
				if res.IsNew {
					status = "created"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", res.CanonicalName, res.TopicID, status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&topics, "topics", defaultSeedTopics, "topic names to create")
	return cmd
}

// ============================================================================
// history
// ============================================================================

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear a learner's conversation",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <email>",
		Short: "Print a learner's conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := c.sm.Documents.LoadConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), history)
			}
			printHistory(cmd.OutOrStdout(), history)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print raw messages as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear <email>",
		Short: "Delete a learner's conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.sm.Documents.ClearConversation(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation for %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}

func printHistory(out io.Writer, history []conversation.Message) {
	if len(history) == 0 {
		fmt.Fprintln(out, "(no messages)")
		return
	}
	for i, m := range history {
		switch {
		case m.Role == conversation.RoleTool:
			fmt.Fprintf(out, "[%d] tool (%s): %s\n", i, m.ToolCallID, strings.Join(m.Content.Documents(), " "))
		case m.HasToolCalls():
			names := make([]string, 0, len(m.ToolCalls))
			for _, call := range m.ToolCalls {
				names = append(names, call.Function.Name)
			}
			fmt.Fprintf(out, "[%d] %s calls %s\n", i, m.Role, strings.Join(names, ", "))
		default:
			fmt.Fprintf(out, "[%d] %s: %s\n", i, m.Role, m.Text())
		}
	}
}

// ============================================================================
// stats
// ============================================================================

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <email>",
		Short: "Print a learner's topic and quiz statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.sm.Stats.UserStatistics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
