package aranet

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Options tune the history protocol and the value codec.
type Options struct {
	Codec Codec
	// NotifyTimeout bounds the wait for each v1 history notification.
	NotifyTimeout time.Duration
	// PollInterval separates v2 history polls that returned nothing new.
	PollInterval time.Duration
	// MaxPollRetries is the number of consecutive empty v2 polls tolerated.
	MaxPollRetries int
	// LogWaitThreshold is how close the next log entry must be for
	// AllRecords to wait for it when EntryFilter.WaitForLog is set.
	LogWaitThreshold time.Duration
	Now              func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Codec:            DefaultCodec,
		NotifyTimeout:    10 * time.Second,
		PollInterval:     100 * time.Millisecond,
		MaxPollRetries:   50,
		LogWaitThreshold: 10 * time.Second,
		Now:              time.Now,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = def.NotifyTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.MaxPollRetries <= 0 {
		o.MaxPollRetries = def.MaxPollRetries
	}
	if o.LogWaitThreshold <= 0 {
		o.LogWaitThreshold = def.LogWaitThreshold
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}

// Client talks to one device over an open Session. It is not safe for
// concurrent use.
type Client struct {
	session Session
	opts    Options
	model   DeviceModel
	history HistoryVersion
}

// NewClient probes the device model and history protocol once.
func NewClient(ctx context.Context, session Session, opts Options) (*Client, error) {
	model, err := ProbeModel(ctx, session)
	if err != nil {
		return nil, errors.Wrap(err, "failed to detect device model")
	}
	c := &Client{
		session: session,
		opts:    opts.withDefaults(),
		model:   model,
		history: probeHistoryVersion(session),
	}
	log.Debugf("detected %s, history %s", c.model, c.history)
	return c, nil
}

// ProbeModel identifies the device from the characteristics it exposes.
// Devices with the shared readings characteristic report their model in it.
func ProbeModel(ctx context.Context, session Session) (DeviceModel, error) {
	if session.HasCharacteristic(CharCurrentReadingsAR2) {
		b, err := session.ReadCharacteristic(ctx, CharCurrentReadingsAR2)
		if err != nil {
			return ModelUnknown, asTransportErr("read", CharCurrentReadingsAR2, err)
		}
		if len(b) < 2 {
			return ModelUnknown, malformed("readings of %d bytes", len(b))
		}
		m := binary.LittleEndian.Uint16(b)
		if m > uint16(ModelRadonDetector) {
			return ModelUnknown, nil
		}
		return DeviceModel(m), nil
	}
	if session.HasCharacteristic(CharCurrentReadingsDetails) || session.HasCharacteristic(CharCurrentReadings) {
		return ModelCO2Monitor, nil
	}
	return ModelUnknown, nil
}

func (c *Client) Model() DeviceModel {
	return c.model
}

func (c *Client) HistoryVersion() HistoryVersion {
	return c.history
}

func (c *Client) Close() error {
	return c.session.Close()
}

func asTransportErr(op, uuid string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return transportErr(op, uuid, err)
}

func (c *Client) read(ctx context.Context, uuid string) ([]byte, error) {
	log.Debugf("reading characteristic %s", uuid)
	b, err := c.session.ReadCharacteristic(ctx, uuid)
	if err != nil {
		return nil, asTransportErr("read", uuid, err)
	}
	return b, nil
}

func (c *Client) write(ctx context.Context, uuid string, data []byte) error {
	log.Debugf("writing % x to characteristic %s", data, uuid)
	if err := c.session.WriteCharacteristic(ctx, uuid, data, true); err != nil {
		return asTransportErr("write", uuid, err)
	}
	return nil
}

func (c *Client) readUint16(ctx context.Context, uuid string) (int, error) {
	b, err := c.read(ctx, uuid)
	if err != nil {
		return 0, err
	}
	if len(b) < 2 {
		return 0, malformed("characteristic %s holds %d bytes", uuid, len(b))
	}
	return int(binary.LittleEndian.Uint16(b)), nil
}

func (c *Client) readString(ctx context.Context, uuid string) (string, error) {
	b, err := c.read(ctx, uuid)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}

// CurrentReadings reads the live values, with interval and age when the
// device exposes them.
func (c *Client) CurrentReadings(ctx context.Context) (CurrentReading, error) {
	var uuid string
	switch c.model {
	case ModelCO2Monitor:
		uuid = CharCurrentReadings
		if c.session.HasCharacteristic(CharCurrentReadingsDetails) {
			uuid = CharCurrentReadingsDetails
		}
	case ModelUnknown:
		return CurrentReading{}, errors.New("unsupported device model")
	default:
		uuid = CharCurrentReadingsAR2
	}

	b, err := c.read(ctx, uuid)
	if err != nil {
		return CurrentReading{}, err
	}
	return c.opts.Codec.DecodeReading(c.model, b)
}

// CurrentReadingFull is CurrentReadings plus device name, firmware version
// and the number of stored log entries.
func (c *Client) CurrentReadingFull(ctx context.Context) (CurrentReading, error) {
	r, err := c.CurrentReadings(ctx)
	if err != nil {
		return CurrentReading{}, err
	}
	if r.Name, err = c.Name(ctx); err != nil {
		return CurrentReading{}, err
	}
	if r.Version, err = c.Version(ctx); err != nil {
		return CurrentReading{}, err
	}
	if r.Stored, err = c.TotalReadings(ctx); err != nil {
		return CurrentReading{}, err
	}
	return r, nil
}

func (c *Client) Name(ctx context.Context) (string, error) {
	return c.readString(ctx, CharDeviceName)
}

// Version returns the firmware version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.readString(ctx, CharSoftwareRevision)
}

// DeviceInfo is read from the standard GATT information characteristics.
type DeviceInfo struct {
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	ModelNumber      string `json:"model_number"`
	SerialNumber     string `json:"serial_number"`
	HardwareRevision string `json:"hardware_revision"`
	SoftwareRevision string `json:"software_revision"`
	Battery          int    `json:"battery"`
}

// DeviceInfo reads the characteristics the device has; missing ones are
// left empty.
func (c *Client) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	info := DeviceInfo{Battery: Absent}
	fields := []struct {
		uuid string
		dst  *string
	}{
		{CharDeviceName, &info.Name},
		{CharManufacturerName, &info.Manufacturer},
		{CharModelNumber, &info.ModelNumber},
		{CharSerialNumber, &info.SerialNumber},
		{CharHardwareRevision, &info.HardwareRevision},
		{CharSoftwareRevision, &info.SoftwareRevision},
	}
	for _, f := range fields {
		if !c.session.HasCharacteristic(f.uuid) {
			continue
		}
		v, err := c.readString(ctx, f.uuid)
		if err != nil {
			return DeviceInfo{}, err
		}
		*f.dst = v
	}
	if c.session.HasCharacteristic(CharBatteryLevel) {
		b, err := c.read(ctx, CharBatteryLevel)
		if err != nil {
			return DeviceInfo{}, err
		}
		if len(b) > 0 {
			info.Battery = int(b[0])
		}
	}
	return info, nil
}

// Interval returns the log interval in seconds.
func (c *Client) Interval(ctx context.Context) (int, error) {
	return c.readUint16(ctx, CharInterval)
}

// SecondsSinceUpdate returns the age of the newest log entry in seconds.
func (c *Client) SecondsSinceUpdate(ctx context.Context) (int, error) {
	return c.readUint16(ctx, CharSecondsSinceUpdate)
}

// TotalReadings returns the number of entries in the history log.
func (c *Client) TotalReadings(ctx context.Context) (int, error) {
	return c.readUint16(ctx, CharTotalReadings)
}

func (c *Client) LastMeasurementDate(ctx context.Context) (time.Time, error) {
	ago, err := c.SecondsSinceUpdate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	now := c.opts.Now().Truncate(time.Second)
	return now.Add(-time.Duration(ago) * time.Second), nil
}

// SensorState reads the device configuration flags.
func (c *Client) SensorState(ctx context.Context) (SensorState, error) {
	b, err := c.read(ctx, CharSensorState)
	if err != nil {
		return SensorState{}, err
	}
	return DecodeSensorState(b)
}

// AllRecords pulls the history window selected by f, one parameter after
// another, and pairs the values with their log timestamps.
func (c *Client) AllRecords(ctx context.Context, f EntryFilter) (Record, error) {
	if c.history == HistoryNone {
		return Record{}, ErrHistoryUnavailable
	}

	name, err := c.Name(ctx)
	if err != nil {
		return Record{}, err
	}
	version, err := c.Version(ctx)
	if err != nil {
		return Record{}, err
	}
	interval, err := c.Interval(ctx)
	if err != nil {
		return Record{}, err
	}
	ago, err := c.SecondsSinceUpdate(ctx)
	if err != nil {
		return Record{}, err
	}
	now := c.opts.Now().Truncate(time.Second)

	nextLog := time.Duration(interval-ago) * time.Second
	log.Debugf("next log entry in %s", nextLog)
	if f.WaitForLog && nextLog >= 0 && nextLog < c.opts.LogWaitThreshold {
		log.Infof("waiting %s for the next log entry", nextLog)
		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-time.After(nextLog):
		}
		if ago, err = c.SecondsSinceUpdate(ctx); err != nil {
			return Record{}, err
		}
		now = c.opts.Now().Truncate(time.Second)
	}

	total, err := c.TotalReadings(ctx)
	if err != nil {
		return Record{}, err
	}
	times := LogTimes(now, total, interval, ago)
	begin, end := CalcStartEnd(times, f)
	filter := NewFilter(c.model, f, begin, end)

	rec := Record{
		Name:            name,
		Version:         version,
		Model:           c.model,
		RecordsOnDevice: total,
		Filter:          filter,
	}
	if filter.Empty() {
		log.Debugf("history window selects no entries")
		return rec, nil
	}

	series := make(map[Param][]float64)
	for _, p := range filter.Params() {
		values, err := c.Records(ctx, p, total, begin, end)
		if err != nil {
			return Record{}, err
		}
		series[p] = values
	}
	rec.Values = zipRecords(times, begin, end, series)
	return rec, nil
}
