package aranet

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ValidIntervals are the log intervals, in minutes, the devices accept.
var ValidIntervals = []int{1, 2, 5, 10}

// SetInterval changes the log interval and reports whether the device
// accepted it.
func (c *Client) SetInterval(ctx context.Context, minutes int) (bool, error) {
	valid := false
	for _, m := range ValidIntervals {
		if m == minutes {
			valid = true
			break
		}
	}
	if !valid {
		return false, errors.Wrapf(ErrInvalidSetting, "interval of %d minutes, want one of %v", minutes, ValidIntervals)
	}

	if err := c.write(ctx, CharCommand, []byte{cmdSetInterval, byte(minutes)}); err != nil {
		return false, err
	}
	seconds, err := c.Interval(ctx)
	if err != nil {
		return false, err
	}
	ok := seconds == minutes*60
	if !ok {
		log.Warnf("device reports interval of %ds after setting %d minutes", seconds, minutes)
	}
	return ok, nil
}

// SetIntegrations toggles live readings in advertisements (smart home
// integrations).
func (c *Client) SetIntegrations(ctx context.Context, enable bool) (bool, error) {
	if err := c.write(ctx, CharCommand, []byte{cmdSetIntegrations, boolByte(enable)}); err != nil {
		return false, err
	}
	state, err := c.SensorState(ctx)
	if err != nil {
		return false, err
	}
	return state.Integrations == enable, nil
}

// SetBluetoothRange switches between standard and extended range.
func (c *Client) SetBluetoothRange(ctx context.Context, extended bool) (bool, error) {
	if err := c.write(ctx, CharCommand, []byte{cmdSetBluetoothRange, boolByte(extended)}); err != nil {
		return false, err
	}
	state, err := c.SensorState(ctx)
	if err != nil {
		return false, err
	}
	return state.ExtendedRange == extended, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
