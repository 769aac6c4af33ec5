package aranet

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidAddress = errors.New("invalid device address")

	// ErrProtocolTimeout is returned when a history pull stops receiving data
	// before it completes.
	ErrProtocolTimeout = errors.New("timed out waiting for history data")

	// ErrMalformedPayload means a buffer does not match the layout expected for
	// the device model or characteristic. It is never retried.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrHistoryUnavailable is reported for devices exposing neither history
	// characteristic.
	ErrHistoryUnavailable = errors.New("device does not provide history")

	ErrInvalidSetting = errors.New("invalid setting value")
)

// TransportError wraps a failure of the underlying BLE layer.
type TransportError struct {
	Op   string
	UUID string
	Err  error
}

func (e *TransportError) Error() string {
	if e.UUID == "" {
		return fmt.Sprintf("ble %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("ble %s %s: %s", e.Op, e.UUID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportErr(op, uuid string, err error) error {
	return &TransportError{Op: op, UUID: uuid, Err: err}
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedPayload, format, args...)
}
