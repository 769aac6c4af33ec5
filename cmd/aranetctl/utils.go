package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alepar/aranet/aranet"
	"github.com/alepar/aranet/aranet/blegatt"
)

func logJSONCmd(cmd cobra.Command, iList ...interface{}) {
	for _, i := range iList {
		m, err := json.Marshal(i)
		if err != nil {
			logErrorCmd(cmd, err)
			return
		}

		pj, err := prettyjson.Format(m)
		if err != nil {
			logErrorCmd(cmd, err)
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", string(pj))
	}
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.OutOrStdout(), color.YellowString("\nusage: %s\n\n"), u)
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	boldRed.Fprintf(cmd.ErrOrStderr(), "\nerror: ")

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", color.RedString(err.Error()))
}

func logOKCmd(cmd cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", color.BlueString("ok"))
}

func logFailedCmd(cmd cobra.Command, what string) {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", color.YellowString("device did not confirm %s", what))
}

// openBLE makes the HCI device the default ble.Device; the returned func
// releases it.
var openBLE = func() (func(), error) {
	d, err := linux.NewDevice()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ble")
	}
	ble.SetDefaultDevice(d)
	return func() {
		if err := ble.Stop(); err != nil {
			log.Debugf("failed to stop ble: %s", err)
		}
	}, nil
}

// connector opens sessions; replaced in tests.
var connector = func() aranet.Connector {
	return &blegatt.Dialer{
		ConnectTimeout: cfg.BLE.ConnectTimeout,
		Retries:        cfg.BLE.Retries,
	}
}

// withClient connects to address and runs fn with a ready client.
func withClient(ctx context.Context, address string, fn func(*aranet.Client) error) error {
	if err := aranet.ValidateAddress(address); err != nil {
		return err
	}

	release, err := openBLE()
	if err != nil {
		return err
	}
	defer release()

	session, err := connector().Connect(ctx, address)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Debugf("failed to close session: %s", err)
		}
	}()

	client, err := aranet.NewClient(ctx, session, cfg.BLE.ClientOptions())
	if err != nil {
		return err
	}
	return fn(client)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and shorter ISO 8601 forms; times without a
// zone are UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("cannot parse time %q, use e.g. 2019-09-29T14:00:00Z", s)
}

func formatValue(v float64, unit string) string {
	if aranet.IsAbsent(v) {
		return "-"
	}
	return fmt.Sprintf("%g %s", v, unit)
}

func printLine(w io.Writer, label, value string) {
	fmt.Fprintf(w, " %-16s %s\n", label+":", value)
}

// printReading prints the quantities present in r.
func printReading(w io.Writer, r aranet.CurrentReading) {
	sep := strings.Repeat("-", 40)
	fmt.Fprintln(w, sep)
	if r.Name != "" {
		printLine(w, "Name", r.Name)
	}
	if r.Version != "" {
		printLine(w, "Version", r.Version)
	}
	printLine(w, "Model", r.Model.String())
	fmt.Fprintln(w, sep)

	values := []struct {
		label string
		v     float64
		unit  string
	}{
		{"CO2", r.CO2, "ppm"},
		{"Temperature", r.Temperature, "°C"},
		{"Humidity", r.Humidity, "%"},
		{"Pressure", r.Pressure, "hPa"},
		{"Dose rate", r.RadiationRate, "nSv/h"},
		{"Dose total", r.RadiationTotal, "nSv"},
		{"Radon", r.RadonConcentration, "Bq/m³"},
		{"Radon 24h avg", r.RadonAverage24h.Value, "Bq/m³"},
		{"Radon 7d avg", r.RadonAverage7d.Value, "Bq/m³"},
		{"Radon 30d avg", r.RadonAverage30d.Value, "Bq/m³"},
		{"Battery", float64(r.Battery), "%"},
	}
	for _, v := range values {
		if !aranet.IsAbsent(v.v) {
			printLine(w, v.label, formatValue(v.v, v.unit))
		}
	}
	if r.RadiationDuration != aranet.Absent {
		printLine(w, "Dose duration", (time.Duration(r.RadiationDuration) * time.Second).String())
	}
	if r.Status != aranet.Absent {
		printLine(w, "Status", r.Status.String())
	}
	if r.StatusTemperature != aranet.Absent {
		printLine(w, "Temp. status", r.StatusTemperature.String())
		printLine(w, "Humid. status", r.StatusHumidity.String())
	}
	if r.Interval != aranet.Absent {
		printLine(w, "Interval", fmt.Sprintf("%d s", r.Interval))
	}
	if r.Ago != aranet.Absent {
		printLine(w, "Ago", fmt.Sprintf("%d s", r.Ago))
	}
	if r.Stored != aranet.Absent {
		printLine(w, "Stored", fmt.Sprintf("%d", r.Stored))
	}
	fmt.Fprintln(w, sep)
}
