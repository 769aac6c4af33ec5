package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/alepar/aranet/aranet"
	"github.com/alepar/aranet/aranet/blegatt"
)

// scanner finds advertisements; replaced in tests.
var scanner = func(all bool) aranet.Scanner {
	return &blegatt.BleScanner{
		ScanDuration:    cfg.BLE.ScanDuration,
		Retries:         cfg.BLE.Retries,
		AllowDuplicates: all,
	}
}

// seenFilter passes the first advertisement of every address, or every
// advertisement when all is set.
type seenFilter struct {
	all  bool
	mu   sync.Mutex
	seen map[string]bool
}

func (f *seenFilter) first(adv aranet.Advertisement) bool {
	if f.all {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[adv.Address] {
		return false
	}
	f.seen[adv.Address] = true
	return true
}

func newScanCmd() *cobra.Command {
	var duration time.Duration
	var all bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List nearby Aranet devices and their advertised readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				duration = cfg.BLE.ScanDuration
			}

			release, err := openBLE()
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()

			filter := &seenFilter{all: all}
			var mu sync.Mutex
			return scanner(all).Scan(ctx, func(adv aranet.Advertisement) {
				if !filter.first(adv) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if RawOutput {
					logJSONCmd(*cmd, adv)
					return
				}
				printAdvertisement(cmd.OutOrStdout(), adv)
			})
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "t", 0, "Scan duration (default: ble.scan_duration)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Print every advertisement, not only the first per device")

	return cmd
}

func printAdvertisement(w io.Writer, adv aranet.Advertisement) {
	printLine(w, "Address", adv.Address)
	printLine(w, "Name", adv.Name)
	printLine(w, "RSSI", fmt.Sprintf("%d dBm", adv.RSSI))
	if md := adv.ManufacturerData; md != nil {
		printLine(w, "Version", md.Version.String())
		printLine(w, "Integrations", fmt.Sprintf("%t", md.Integrations))
	}
	if adv.Readings != nil {
		printReading(w, *adv.Readings)
	} else {
		fmt.Fprintln(w)
	}
}
