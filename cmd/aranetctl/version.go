package main

import (
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if RawOutput {
				logJSONCmd(*cmd, map[string]string{
					"version":    version.Version,
					"revision":   version.Revision,
					"branch":     version.Branch,
					"build_date": version.BuildDate,
					"go_version": version.GoVersion,
				})
				return nil
			}
			cmd.Println(version.Print("aranetctl"))
			return nil
		},
	}
}
