package blegatt

import (
	"context"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/aranet/aranet"
)

// BleScanner listens for Aranet advertisements on the default ble.Device.
type BleScanner struct {
	ScanDuration time.Duration
	Retries      int
	// AllowDuplicates reports every advertisement instead of one per device.
	AllowDuplicates bool
}

// Scan delivers advertisements until ctx is done. Reaching the deadline of
// ctx is a normal end of scan.
func (scanner *BleScanner) Scan(ctx context.Context, onAdvertisement func(aranet.Advertisement)) error {
	handler := func(a ble.Advertisement) {
		if adv, ok := toAdvertisement(a); ok {
			onAdvertisement(adv)
		}
	}
	err := ble.Scan(ctx, scanner.AllowDuplicates, handler, aranetOnlyFilter)
	switch errors.Cause(err) {
	case nil:
	case context.DeadlineExceeded:
	case context.Canceled:
		return errors.Wrap(err, "scan for devices cancelled")
	default:
		return &aranet.TransportError{Op: "scan", Err: err}
	}
	return nil
}

// Find scans for ScanDuration and returns the latest advertisement of every
// device seen, keyed by address.
func (scanner *BleScanner) Find(ctx context.Context) (map[string]aranet.Advertisement, error) {
	var lastErr error
	var devices map[string]aranet.Advertisement
	for i := 0; i < scanner.retries(); i++ {
		devices, lastErr = scanner.find(ctx)
		if lastErr == nil {
			return devices, nil
		}
		if ctx.Err() != nil {
			break
		}
		log.Errorf("retrying error in scan: %s", lastErr)
	}

	return map[string]aranet.Advertisement{}, errors.Wrap(lastErr, "all retries to scan failed")
}

func (scanner *BleScanner) retries() int {
	if scanner.Retries < 1 {
		return 1
	}
	return scanner.Retries
}

func (scanner *BleScanner) find(ctx context.Context) (map[string]aranet.Advertisement, error) {
	var mu sync.Mutex
	devices := map[string]aranet.Advertisement{}

	sctx := ble.WithSigHandler(context.WithTimeout(ctx, scanner.ScanDuration))
	err := scanner.Scan(sctx, func(adv aranet.Advertisement) {
		mu.Lock()
		defer mu.Unlock()
		devices[adv.Address] = adv
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func aranetOnlyFilter(a ble.Advertisement) bool {
	id, _, ok := aranet.SplitManufacturerData(a.ManufacturerData())
	return ok && id == aranet.ManufacturerID
}

func toAdvertisement(a ble.Advertisement) (aranet.Advertisement, bool) {
	_, payload, ok := aranet.SplitManufacturerData(a.ManufacturerData())
	if !ok {
		return aranet.Advertisement{}, false
	}
	services := make([]string, 0, len(a.Services()))
	for _, u := range a.Services() {
		services = append(services, u.String())
	}
	adv := aranet.NewAdvertisement(a.Addr().String(), a.LocalName(), a.RSSI(), services, payload)
	log.Debugf("advertisement from %s (%s), rssi %d", adv.Address, adv.Name, adv.RSSI)
	return adv, true
}
