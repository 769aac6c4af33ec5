package aranet

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dualReading = []byte{0x01, 0x00, 0x3c, 0x00, 0x52, 0x00, 0x3b, 0x99, 0x01, 0x0a, 0x02, 0x09}
	co2Reading  = []byte{0x43, 0x04, 0xa0, 0x01, 0x8b, 0x27, 0x35, 0x0c, 0x01, 0x3c, 0x00, 0x10, 0x00}
	fixedNow    = time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)
)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestProbeModel(t *testing.T) {
	cases := []struct {
		desc    string
		session *fakeSession
		want    DeviceModel
		err     error
	}{
		{
			desc:    "dual sensor",
			session: newFakeSession().queue(CharCurrentReadingsAR2, dualReading),
			want:    ModelDualSensor,
		},
		{
			desc:    "dosimeter",
			session: newFakeSession().queue(CharCurrentReadingsAR2, u16(2)),
			want:    ModelRadiationDosimeter,
		},
		{
			desc:    "unknown discriminant",
			session: newFakeSession().queue(CharCurrentReadingsAR2, u16(7)),
			want:    ModelUnknown,
		},
		{
			desc:    "short discriminant",
			session: newFakeSession().queue(CharCurrentReadingsAR2, []byte{0x01}),
			want:    ModelUnknown,
			err:     ErrMalformedPayload,
		},
		{
			desc:    "co2 monitor details",
			session: newFakeSession(CharCurrentReadingsDetails),
			want:    ModelCO2Monitor,
		},
		{
			desc:    "co2 monitor basic",
			session: newFakeSession(CharCurrentReadings),
			want:    ModelCO2Monitor,
		},
		{
			desc:    "nothing known",
			session: newFakeSession(CharDeviceName),
			want:    ModelUnknown,
		},
	}

	for _, tc := range cases {
		got, err := ProbeModel(context.Background(), tc.session)
		assert.Equal(t, tc.want, got, tc.desc)
		if tc.err != nil {
			assert.True(t, errors.Is(err, tc.err), "%s: %v", tc.desc, err)
			continue
		}
		assert.NoError(t, err, tc.desc)
	}
}

func TestProbeModelTransportError(t *testing.T) {
	s := newFakeSession(CharCurrentReadingsAR2)
	s.readErr = errors.New("link lost")

	_, err := ProbeModel(context.Background(), s)
	var te *TransportError
	require.True(t, errors.As(err, &te), err)
	assert.Equal(t, "read", te.Op)
	assert.Equal(t, CharCurrentReadingsAR2, te.UUID)
}

func TestNewClient(t *testing.T) {
	s := newFakeSession(CharHistoryV2).queue(CharCurrentReadingsAR2, dualReading)

	c, err := NewClient(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.Equal(t, ModelDualSensor, c.Model())
	assert.Equal(t, HistoryV2, c.HistoryVersion())
	assert.Equal(t, DefaultOptions().MaxPollRetries, c.opts.MaxPollRetries)

	require.NoError(t, c.Close())
	assert.True(t, s.closed)
}

func TestCurrentReadings(t *testing.T) {
	s := newFakeSession(CharCurrentReadings).queue(CharCurrentReadingsDetails, co2Reading)
	c := testClient(s, ModelCO2Monitor, Options{})

	r, err := c.CurrentReadings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(1091), r.CO2)
	assert.Equal(t, 60, r.Interval)

	s = newFakeSession().queue(CharCurrentReadingsAR2, dualReading)
	c = testClient(s, ModelDualSensor, Options{})
	r, err = c.CurrentReadings(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 52.2, r.Humidity, 1e-9)

	c = testClient(newFakeSession(), ModelUnknown, Options{})
	_, err = c.CurrentReadings(context.Background())
	assert.Error(t, err)
}

func TestCurrentReadingsTransportError(t *testing.T) {
	s := newFakeSession().queue(CharCurrentReadingsAR2, dualReading)
	s.readErr = errors.New("link lost")
	c := testClient(s, ModelDualSensor, Options{})

	_, err := c.CurrentReadings(context.Background())
	var te *TransportError
	assert.True(t, errors.As(err, &te), err)
}

func TestCurrentReadingFull(t *testing.T) {
	s := newFakeSession().
		queue(CharCurrentReadingsAR2, dualReading).
		queue(CharDeviceName, []byte("Aranet2 278F8\x00")).
		queue(CharSoftwareRevision, []byte("v1.4.4")).
		queue(CharTotalReadings, u16(1250))
	c := testClient(s, ModelDualSensor, Options{})

	r, err := c.CurrentReadingFull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Aranet2 278F8", r.Name)
	assert.Equal(t, "v1.4.4", r.Version)
	assert.Equal(t, 1250, r.Stored)
	assert.InDelta(t, 20.5, r.Temperature, 1e-9)
}

func TestDeviceInfo(t *testing.T) {
	s := newFakeSession().
		queue(CharDeviceName, []byte("Aranet4 12345")).
		queue(CharManufacturerName, []byte("SAF Tehnika")).
		queue(CharSoftwareRevision, []byte("v1.3.5")).
		queue(CharBatteryLevel, []byte{0x5a})
	c := testClient(s, ModelCO2Monitor, Options{})

	info, err := c.DeviceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DeviceInfo{
		Name:             "Aranet4 12345",
		Manufacturer:     "SAF Tehnika",
		SoftwareRevision: "v1.3.5",
		Battery:          90,
	}, info)
}

func TestLastMeasurementDate(t *testing.T) {
	s := newFakeSession().queue(CharSecondsSinceUpdate, u16(30))
	c := testClient(s, ModelCO2Monitor, Options{Now: clockAt(fixedNow)})

	last, err := c.LastMeasurementDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 59, 30, 0, time.UTC), last)
}

func TestSetInterval(t *testing.T) {
	s := newFakeSession().queue(CharInterval, u16(300))
	c := testClient(s, ModelCO2Monitor, Options{})

	ok, err := c.SetInterval(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, s.written(), 1)
	assert.Equal(t, fakeWrite{uuid: CharCommand, data: []byte{0x90, 0x05}}, s.written()[0])

	s.serve(CharInterval, u16(60))
	ok, err = c.SetInterval(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.SetInterval(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrInvalidSetting))
	assert.Len(t, s.written(), 2)
}

func TestSetIntegrationsAndRange(t *testing.T) {
	s := newFakeSession().queue(CharSensorState, []byte{0x00, 0x21, 0x00})
	c := testClient(s, ModelCO2Monitor, Options{})

	ok, err := c.SetIntegrations(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetBluetoothRange(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, ok)

	writes := s.written()
	require.Len(t, writes, 2)
	assert.Equal(t, []byte{0x91, 0x01}, writes[0].data)
	assert.Equal(t, []byte{0x92, 0x01}, writes[1].data)
}

// serveHistory answers every v2 history command with the page for the
// requested parameter.
func serveHistory(s *fakeSession, pages map[Param][]byte) {
	s.setOnWrite(func(uuid string, data []byte) {
		if uuid != CharCommand || len(data) < 2 || data[0] != cmdHistoryV2 {
			return
		}
		if page, ok := pages[Param(data[1])]; ok {
			s.serve(CharHistoryV2, page)
		}
	})
}

func dualHistorySession(ago ...[]byte) *fakeSession {
	s := newFakeSession(CharCommand, CharHistoryV2).
		queue(CharCurrentReadingsAR2, dualReading).
		queue(CharDeviceName, []byte("Aranet2 278F8")).
		queue(CharSoftwareRevision, []byte("v1.4.4")).
		queue(CharInterval, u16(60)).
		queue(CharSecondsSinceUpdate, ago...).
		queue(CharTotalReadings, u16(3))
	serveHistory(s, map[Param][]byte{
		ParamTemperature: v2Page(ParamTemperature, 3, 2, words(400, 410)...),
		ParamHumidity2:   v2Page(ParamHumidity2, 3, 2, words(450, 455)...),
	})
	return s
}

func TestAllRecords(t *testing.T) {
	s := dualHistorySession(u16(30))
	c := testClient(s, ModelDualSensor, Options{Now: clockAt(fixedNow), PollInterval: time.Millisecond})

	rec, err := c.AllRecords(context.Background(), EntryFilter{Last: 2, WaitForLog: true})
	require.NoError(t, err)
	assert.Equal(t, "Aranet2 278F8", rec.Name)
	assert.Equal(t, "v1.4.4", rec.Version)
	assert.Equal(t, 3, rec.RecordsOnDevice)
	assert.Equal(t, 2, rec.Filter.Begin)
	assert.Equal(t, 3, rec.Filter.End)
	assert.Equal(t, []Param{ParamTemperature, ParamHumidity2}, rec.Filter.Params())

	require.Len(t, rec.Values, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 58, 30, 0, time.UTC), rec.Values[0].Date)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 59, 30, 0, time.UTC), rec.Values[1].Date)
	assert.Equal(t, float64(20), rec.Values[0].Temperature)
	assert.Equal(t, 20.5, rec.Values[1].Temperature)
	assert.Equal(t, float64(45), rec.Values[0].Humidity)
	assert.InDelta(t, 45.5, rec.Values[1].Humidity, 1e-9)
	assert.True(t, IsAbsent(rec.Values[0].CO2))
}

func TestAllRecordsWaitsForLog(t *testing.T) {
	s := dualHistorySession(u16(60), u16(0))
	c := testClient(s, ModelDualSensor, Options{Now: clockAt(fixedNow), PollInterval: time.Millisecond})

	rec, err := c.AllRecords(context.Background(), EntryFilter{WaitForLog: true})
	require.NoError(t, err)
	require.Len(t, rec.Values, 3)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), rec.Values[2].Date)
}

func TestAllRecordsOutOfRange(t *testing.T) {
	s := dualHistorySession(u16(30))
	c := testClient(s, ModelDualSensor, Options{Now: clockAt(fixedNow)})

	rec, err := c.AllRecords(context.Background(), EntryFilter{Start: fixedNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, rec.Filter.Empty())
	assert.Empty(t, rec.Values)
	assert.Empty(t, s.written())
}

func TestAllRecordsWithoutHistory(t *testing.T) {
	c := testClient(newFakeSession(CharCurrentReadings), ModelCO2Monitor, Options{})
	_, err := c.AllRecords(context.Background(), EntryFilter{})
	assert.Equal(t, ErrHistoryUnavailable, err)
}
