package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	puppet "github.com/gekko3d/puppet"
	"github.com/gekko3d/puppet/internal/config"
)

// cli carries what PersistentPreRunE prepares for the subcommands.
type cli struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *puppet.DefaultLogger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "puppetsim",
		Short:         "Headless simulation of a humanoid reaction rig.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.Logger.Level = c.logLevel
			}
			// Logs go to stderr so stdout stays parseable.
			logger, err := puppet.NewLogger(cfg.Logger, zapcore.AddSync(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logger != nil {
				return c.logger.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "rig config file (yaml, toml or json); stock humanoid when empty")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logger.level")

	root.AddCommand(newRunCmd(c), newDumpConfigCmd(c))
	return root
}
