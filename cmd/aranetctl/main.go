package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alepar/aranet/config"
)

var (
	// ConfigPath config file parameter.
	ConfigPath string = ""
	// RawOutput prints JSON instead of tables.
	RawOutput bool = false
	// Debug enables debug logging.
	Debug bool = false

	cfg = config.Default()
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aranetctl",
		Short:         "Read, configure and export Aranet sensors over Bluetooth LE",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(ConfigPath)
			if err != nil {
				return err
			}
			if Debug {
				loaded.Log.Level = "debug"
			}
			if err := loaded.Log.ApplyLogging(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCurrentCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newSetCmd())

	rootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", ConfigPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&RawOutput, "raw", "r", RawOutput, "Print JSON output")
	rootCmd.PersistentFlags().BoolVarP(&Debug, "debug", "d", Debug, "Enable debug logging")

	return rootCmd
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logErrorCmd(*rootCmd, err)
		log.Debugf("%+v", err)
		os.Exit(1)
	}
}
