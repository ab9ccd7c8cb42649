package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/m0rjc/cyberalchemy/agents"
	"github.com/spf13/cobra"
)

func newConversationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage conversations",
	}
	cmd.AddCommand(newConversationsListCmd(opts), newConversationsDeleteCmd(opts), newConversationsForkCmd(opts))
	return cmd
}

func newConversationsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			convs, err := a.engine.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tAGENTS\tMESSAGES\tARCHIVED")
			for _, conv := range convs {
				s := conv.Summary()
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					s.ID, s.UpdatedAt.Format(time.DateTime), strings.Join(s.Agents, ","), s.MessageCount, conv.Archive().ArchivedIndex+1)
			}
			return w.Flush()
		},
	}
}

func newConversationsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.engine.Delete(cmd.Context(), args[0])
		},
	}
}

func newConversationsForkCmd(opts *rootOptions) *cobra.Command {
	var agentRefs []string
	cmd := &cobra.Command{
		Use:   "fork <conversation-id>",
		Short: "Copy a conversation, optionally with other agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var participants []agents.Config
			if len(agentRefs) > 0 {
				if participants, err = a.resolveAgents(cmd.Context(), agentRefs); err != nil {
					return err
				}
			}
			fork, err := a.engine.Fork(cmd.Context(), args[0], participants)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forked conversation %s as %s\n", args[0], fork.ID)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&agentRefs, "agent", "a", nil, "agent ID or name for the fork (default: keep)")
	return cmd
}
