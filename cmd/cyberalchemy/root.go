package main

import (
	"github.com/m0rjc/cyberalchemy/config"
	"github.com/spf13/cobra"
)

// rootOptions are the global flags and the configuration they produce.
type rootOptions struct {
	cfgFile  string
	envFiles []string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cyberalchemy",
		Short: "Multi-agent conversations with a rolling context window",
		Long: `cyberalchemy keeps long conversations with AI agents within the model's context
by folding the oldest messages into a running summary, while storing every message.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.cfgFile, opts.envFiles...)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			setupLogging(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	cmd.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newAgentsCmd(opts),
		newConversationsCmd(opts),
	)
	return cmd
}
