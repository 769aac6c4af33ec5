package blegatt

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/aranet/aranet"
)

var errDisconnected = errors.New("device disconnected")

const DefaultConnectTimeout = 10 * time.Second

// Dialer connects to devices through the default ble.Device.
type Dialer struct {
	ConnectTimeout time.Duration
	Retries        int
}

func (d *Dialer) Connect(ctx context.Context, address string) (aranet.Session, error) {
	if err := aranet.ValidateAddress(address); err != nil {
		return nil, err
	}
	addr := aranet.NormalizeAddress(address)

	retries := d.Retries
	if retries < 1 {
		retries = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries-1)), ctx)

	var session *Session
	err := backoff.RetryNotify(func() error {
		var err error
		session, err = d.connect(ctx, addr)
		return err
	}, b, func(err error, next time.Duration) {
		log.Errorf("retrying error in connect to %s in %s: %s", addr, next, err)
	})
	if err != nil {
		return nil, &aranet.TransportError{Op: "connect", Err: errors.Wrap(err, "all retries to connect failed")}
	}
	return session, nil
}

func (d *Dialer) connect(ctx context.Context, addr string) (*Session, error) {
	filter := func(a ble.Advertisement) bool {
		return strings.EqualFold(a.Addr().String(), addr)
	}

	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	log.Debugf("connecting to %s", addr)
	cctx := ble.WithSigHandler(context.WithTimeout(ctx, timeout))
	cln, err := ble.Connect(cctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect to ble")
	}

	// The peripheral may drop the connection on its own, so the disconnection
	// is watched for in a goroutine.
	done := make(chan struct{})
	go func() {
		<-cln.Disconnected()
		log.Debugf("device %s disconnected", addr)
		close(done)
	}()

	log.Debugf("discovering profile")
	profile, err := cln.DiscoverProfile(true)
	log.Debugf("finished discovering profile")
	if err != nil {
		_ = cln.CancelConnection()
		<-done
		return nil, errors.Wrap(err, "couldn't discover profile")
	}

	return &Session{
		client:  cln,
		profile: profile,
		done:    done,
	}, nil
}

// Session is a GATT connection with a discovered profile.
type Session struct {
	client  ble.Client
	profile *ble.Profile
	done    chan struct{}
}

func (s *Session) characteristic(op, uuid string) (*ble.Characteristic, error) {
	select {
	case <-s.done:
		return nil, &aranet.TransportError{Op: op, UUID: uuid, Err: errDisconnected}
	default:
	}
	u, err := ble.Parse(uuid)
	if err != nil {
		return nil, &aranet.TransportError{Op: op, UUID: uuid, Err: errors.Wrap(err, "bad uuid")}
	}
	c := s.profile.FindCharacteristic(ble.NewCharacteristic(u))
	if c == nil {
		return nil, &aranet.TransportError{Op: op, UUID: uuid, Err: errors.New("characteristic not found")}
	}
	return c, nil
}

func (s *Session) HasCharacteristic(uuid string) bool {
	u, err := ble.Parse(uuid)
	if err != nil {
		return false
	}
	return s.profile.FindCharacteristic(ble.NewCharacteristic(u)) != nil
}

func (s *Session) ReadCharacteristic(ctx context.Context, uuid string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.characteristic("read", uuid)
	if err != nil {
		return nil, err
	}
	log.Debugf("reading characteristic %s", uuid)
	b, err := s.client.ReadCharacteristic(c)
	log.Debugf("finished reading characteristic %s", uuid)
	if err != nil {
		return nil, &aranet.TransportError{Op: "read", UUID: uuid, Err: err}
	}
	return b, nil
}

func (s *Session) WriteCharacteristic(ctx context.Context, uuid string, data []byte, withResponse bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := s.characteristic("write", uuid)
	if err != nil {
		return err
	}
	if err := s.client.WriteCharacteristic(c, data, !withResponse); err != nil {
		return &aranet.TransportError{Op: "write", UUID: uuid, Err: err}
	}
	return nil
}

func (s *Session) Subscribe(ctx context.Context, uuid string, onNotify func([]byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := s.characteristic("subscribe", uuid)
	if err != nil {
		return err
	}
	if err := s.client.Subscribe(c, indicateOnly(c), onNotify); err != nil {
		return &aranet.TransportError{Op: "subscribe", UUID: uuid, Err: err}
	}
	return nil
}

func (s *Session) Unsubscribe(ctx context.Context, uuid string) error {
	c, err := s.characteristic("unsubscribe", uuid)
	if err != nil {
		return err
	}
	if err := s.client.Unsubscribe(c, indicateOnly(c)); err != nil {
		return &aranet.TransportError{Op: "unsubscribe", UUID: uuid, Err: err}
	}
	return nil
}

func indicateOnly(c *ble.Characteristic) bool {
	return c.Property&ble.CharNotify == 0 && c.Property&ble.CharIndicate != 0
}

// Close drops the connection and waits for the disconnect to be observed.
func (s *Session) Close() error {
	log.Debugf("closing connection")
	err := s.client.CancelConnection()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		log.Warnf("no disconnect event after closing connection")
	}
	if err != nil {
		return &aranet.TransportError{Op: "close", Err: err}
	}
	return nil
}
