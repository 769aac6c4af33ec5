package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alepar/aranet/aranet"
	"github.com/alepar/aranet/export"
)

type historyFlags struct {
	last   int
	start  string
	end    string
	output string
	noWait bool
	influx bool
	params map[string]*string
}

func newHistoryFlags() historyFlags {
	f := historyFlags{params: make(map[string]*string)}
	for _, name := range paramFlags {
		f.params[name] = new(string)
	}
	return f
}

// paramFlags are the per-quantity on/off switches.
var paramFlags = []string{"temperature", "humidity", "pressure", "co2", "dose", "dose-rate", "dose-total", "radon"}

// entryFilter turns the flags into an aranet.EntryFilter.
func (f historyFlags) entryFilter() (aranet.EntryFilter, error) {
	ef := aranet.EntryFilter{
		Last:       f.last,
		WaitForLog: !f.noWait,
	}
	if f.last < 0 {
		return ef, errors.New("--last must not be negative")
	}
	if f.start != "" {
		t, err := parseTime(f.start)
		if err != nil {
			return ef, err
		}
		ef.Start = t
	}
	if f.end != "" {
		t, err := parseTime(f.end)
		if err != nil {
			return ef, err
		}
		ef.End = t
	}

	toggles := map[string]*aranet.Toggle{
		"temperature": &ef.Temperature,
		"humidity":    &ef.Humidity,
		"pressure":    &ef.Pressure,
		"co2":         &ef.CO2,
		"dose":        &ef.RadiationDose,
		"dose-rate":   &ef.RadiationDoseRate,
		"dose-total":  &ef.RadiationDoseIntegral,
		"radon":       &ef.Radon,
	}
	for name, v := range f.params {
		t, err := aranet.ParseToggle(*v)
		if err != nil {
			return ef, errors.Wrapf(err, "--%s", name)
		}
		*toggles[name] = t
	}
	return ef, nil
}

func newHistoryCmd() *cobra.Command {
	flags := newHistoryFlags()

	cmd := &cobra.Command{
		Use:   "history <device_address>",
		Short: "Fetch the history log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ef, err := flags.entryFilter()
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), args[0], func(c *aranet.Client) error {
				rec, err := c.AllRecords(cmd.Context(), ef)
				if err != nil {
					return err
				}

				if RawOutput {
					logJSONCmd(*cmd, rec)
				} else {
					printRecords(cmd.OutOrStdout(), rec)
				}

				if flags.output != "" {
					if err := writeCSVFile(flags.output, rec); err != nil {
						return err
					}
				}
				if flags.influx {
					if !cfg.Influx.Enabled() {
						return errors.New("--influx needs influx.url in the config")
					}
					w := export.NewInfluxWriter(cfg.Influx)
					defer w.Close()
					if err := w.WriteRecord(cmd.Context(), rec.Name, rec); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&flags.last, "last", "l", 0, "Get the last COUNT records")
	cmd.Flags().StringVarP(&flags.start, "start", "s", "", "Records range start (UTC time, example: 2019-09-29T14:00:00Z)")
	cmd.Flags().StringVarP(&flags.end, "end", "e", "", "Records range end (UTC time, example: 2019-09-30T14:00:00Z)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Save records to a CSV file")
	cmd.Flags().BoolVarP(&flags.noWait, "no-wait", "w", false, "Do not wait for the next log entry before pulling")
	cmd.Flags().BoolVar(&flags.influx, "influx", false, "Write records to the configured InfluxDB")
	for _, name := range paramFlags {
		cmd.Flags().StringVar(flags.params[name], name, "", fmt.Sprintf("Include %s (on|off, default: per model)", name))
	}

	return cmd
}

func writeCSVFile(path string, rec aranet.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create csv file")
	}
	if err := export.WriteCSV(f, rec); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "failed to close csv file")
}

func printRecords(w io.Writer, rec aranet.Record) {
	sep := strings.Repeat("-", 72)
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "%-15s: %20s\n", "Device Name", rec.Name)
	fmt.Fprintf(w, "%-15s: %20s\n", "Device Version", rec.Version)
	fmt.Fprintf(w, "%-15s: %20d\n", "Records", rec.RecordsOnDevice)
	fmt.Fprintln(w, sep)

	params := rec.Filter.Params()
	fmt.Fprintf(w, "%5s | %-20s", "id", "date")
	for _, p := range params {
		fmt.Fprintf(w, " | %10s", columnName(p))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, sep)

	for i, item := range rec.Values {
		fmt.Fprintf(w, "%5d | %-20s", rec.Filter.Begin+i, item.Date.UTC().Format("2006-01-02T15:04:05"))
		for _, p := range params {
			v := item.Value(p)
			if aranet.IsAbsent(v) {
				fmt.Fprintf(w, " | %10s", "-")
			} else {
				fmt.Fprintf(w, " | %10g", v)
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, sep)
}

func columnName(p aranet.Param) string {
	switch p {
	case aranet.ParamHumidity, aranet.ParamHumidity2:
		return "humidity"
	case aranet.ParamRadiationDose:
		return "dose"
	case aranet.ParamRadiationDoseRate:
		return "dose rate"
	case aranet.ParamRadiationDoseIntegral:
		return "dose total"
	case aranet.ParamRadonConcentration:
		return "radon"
	}
	return p.String()
}
