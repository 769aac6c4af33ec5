package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alepar/aranet/aranet"
)

type setFlags struct {
	interval     int
	integrations string
	btRange      string
}

func (f setFlags) empty() bool {
	return f.interval == 0 && f.integrations == "" && f.btRange == ""
}

// parseRange maps standard/extended onto the extended flag.
func parseRange(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "normal":
		return false, nil
	case "extended", "long":
		return true, nil
	}
	return false, errors.Wrapf(aranet.ErrInvalidSetting, "bluetooth range %q, want standard or extended", s)
}

// parseSwitch accepts on/off; an unset toggle is an error for a write.
func parseSwitch(s string) (bool, error) {
	t, err := aranet.ParseToggle(s)
	if err != nil {
		return false, err
	}
	if t == aranet.Unset {
		return false, errors.Wrapf(aranet.ErrInvalidSetting, "%q, want on or off", s)
	}
	return t == aranet.On, nil
}

func newSetCmd() *cobra.Command {
	var flags setFlags

	cmd := &cobra.Command{
		Use:   "set <device_address>",
		Short: "Change device settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.empty() {
				logUsageCmd(*cmd, cmd.UseLine()+" [--interval 1|2|5|10] [--integrations on|off] [--range standard|extended]")
				return nil
			}

			var integrations, extended bool
			var err error
			if flags.integrations != "" {
				if integrations, err = parseSwitch(flags.integrations); err != nil {
					return err
				}
			}
			if flags.btRange != "" {
				if extended, err = parseRange(flags.btRange); err != nil {
					return err
				}
			}

			return withClient(cmd.Context(), args[0], func(c *aranet.Client) error {
				if flags.interval != 0 {
					ok, err := c.SetInterval(cmd.Context(), flags.interval)
					if err != nil {
						return err
					}
					report(*cmd, ok, "interval")
				}
				if flags.integrations != "" {
					ok, err := c.SetIntegrations(cmd.Context(), integrations)
					if err != nil {
						return err
					}
					report(*cmd, ok, "integrations")
				}
				if flags.btRange != "" {
					ok, err := c.SetBluetoothRange(cmd.Context(), extended)
					if err != nil {
						return err
					}
					report(*cmd, ok, "bluetooth range")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&flags.interval, "interval", 0, "Log interval in minutes (1, 2, 5 or 10)")
	cmd.Flags().StringVar(&flags.integrations, "integrations", "", "Smart home integrations (on|off)")
	cmd.Flags().StringVar(&flags.btRange, "range", "", "Bluetooth range (standard|extended)")

	return cmd
}

func report(cmd cobra.Command, ok bool, what string) {
	if ok {
		logOKCmd(cmd)
		return
	}
	logFailedCmd(cmd, what)
}
