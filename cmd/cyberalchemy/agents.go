package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/m0rjc/cyberalchemy/agents"
	"github.com/spf13/cobra"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agent configurations",
	}
	cmd.AddCommand(newAgentsListCmd(opts), newAgentsCreateCmd(opts), newAgentsDeleteCmd(opts))
	return cmd
}

func newAgentsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			configs, err := a.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, c := range configs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.AgentID, c.Name, c.Description)
			}
			return w.Flush()
		},
	}
}

func newAgentsCreateCmd(opts *rootOptions) *cobra.Command {
	var config agents.Config
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.registry.Create(cmd.Context(), config)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created agent %s with ID %s\n", created.Name, created.AgentID)
			return nil
		},
	}
	cmd.Flags().StringVar(&config.Name, "name", "", "unique agent name")
	cmd.Flags().StringVar(&config.Description, "description", "", "one-line description")
	cmd.Flags().StringVar(&config.SystemPrompt, "prompt", "", "system prompt (default \""+agents.DefaultSystemPrompt+"\")")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAgentsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Delete an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.registry.Delete(cmd.Context(), args[0])
		},
	}
}
