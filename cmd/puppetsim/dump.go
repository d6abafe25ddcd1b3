package main

import (
	"github.com/spf13/cobra"

	"github.com/gekko3d/puppet/internal/config"
)

func newDumpConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-config",
		Short: "Print the effective rig config as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.Marshal(c.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
