package main

import (
	"github.com/spf13/cobra"

	"github.com/alepar/aranet/aranet"
)

func newCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current <device_address>",
		Short: "Read current measurements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), args[0], func(c *aranet.Client) error {
				r, err := c.CurrentReadingFull(cmd.Context())
				if err != nil {
					return err
				}
				if RawOutput {
					logJSONCmd(*cmd, r)
					return nil
				}
				printReading(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <device_address>",
		Short: "Show device information and settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), args[0], func(c *aranet.Client) error {
				info, err := c.DeviceInfo(cmd.Context())
				if err != nil {
					return err
				}
				state, err := c.SensorState(cmd.Context())
				if err != nil {
					return err
				}
				interval, err := c.Interval(cmd.Context())
				if err != nil {
					return err
				}
				last, err := c.LastMeasurementDate(cmd.Context())
				if err != nil {
					return err
				}

				out := struct {
					aranet.DeviceInfo
					Model           string             `json:"model"`
					History         string             `json:"history"`
					Interval        int                `json:"interval"`
					LastMeasurement string             `json:"last_measurement"`
					State           aranet.SensorState `json:"state"`
				}{
					DeviceInfo:      info,
					Model:           c.Model().String(),
					History:         c.HistoryVersion().String(),
					Interval:        interval,
					LastMeasurement: last.UTC().Format(timeLayouts[0]),
					State:           state,
				}
				logJSONCmd(*cmd, out)
				return nil
			})
		},
	}
}
