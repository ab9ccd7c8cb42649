package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/m0rjc/cyberalchemy/conversation"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var agentRefs []string
	cmd := &cobra.Command{
		Use:   "chat [conversation-id]",
		Short: "Chat in the terminal",
		Long: `Start a conversation with the given agents, or resume one by ID, and chat
line by line. Without agents the AgentManager answers. Type /exit to leave.

Examples:
  cyberalchemy chat --agent Poet
  cyberalchemy chat 3f2a9c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var conv *conversation.Conversation
			if len(args) == 1 {
				if conv, err = a.engine.Resume(ctx, args[0]); err != nil {
					return err
				}
				for _, msg := range conv.Messages {
					fmt.Fprintf(out, "%s: %s\n", msg.Source, msg.Content)
				}
			} else {
				participants, err := a.resolveAgents(ctx, agentRefs)
				if err != nil {
					return err
				}
				if conv, err = a.engine.Start(ctx, participants); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "Conversation %s with %s\n", conv.ID, conv.Primary().Name)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "/exit" {
					break
				}
				if line == "" {
					continue
				}
				reply, err := a.engine.Respond(ctx, conv.ID, line)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", reply.Source, reply.Content)
			}
			fmt.Fprintln(out)
			return scanner.Err()
		},
	}
	cmd.Flags().StringSliceVarP(&agentRefs, "agent", "a", nil, "agent ID or name (repeatable; the first answers)")
	return cmd
}
