package aranet

import "context"

// Session is an open GATT connection to one device. Characteristics are
// addressed by their 128-bit UUID string. A Session is owned by a single
// caller; operations on it are never issued concurrently.
type Session interface {
	ReadCharacteristic(ctx context.Context, uuid string) ([]byte, error)
	WriteCharacteristic(ctx context.Context, uuid string, data []byte, withResponse bool) error

	// Subscribe registers onNotify for notifications of uuid. onNotify may be
	// called from another goroutine.
	Subscribe(ctx context.Context, uuid string, onNotify func([]byte)) error
	Unsubscribe(ctx context.Context, uuid string) error

	// HasCharacteristic is a capability probe; it performs no I/O.
	HasCharacteristic(uuid string) bool

	Close() error
}

// Connector opens sessions.
type Connector interface {
	Connect(ctx context.Context, address string) (Session, error)
}
