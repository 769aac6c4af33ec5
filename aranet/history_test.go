package aranet

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v1Packet(p Param, start int, samples ...byte) []byte {
	width := p.Width()
	packet := append([]byte{byte(p)}, u16(start)...)
	packet = append(packet, byte(len(samples)/width))
	return append(packet, samples...)
}

func v2Page(p Param, total, start int, samples ...byte) []byte {
	page := []byte{byte(p)}
	page = append(page, u16(60)...)
	page = append(page, u16(total)...)
	page = append(page, u16(10)...)
	page = append(page, u16(start)...)
	page = append(page, byte(len(samples)/p.historyV2Width()))
	return append(page, samples...)
}

func words(values ...int) []byte {
	var b []byte
	for _, v := range values {
		b = append(b, u16(v)...)
	}
	return b
}

func testClient(s *fakeSession, model DeviceModel, opts Options) *Client {
	return &Client{
		session: s,
		opts:    opts.withDefaults(),
		model:   model,
		history: probeHistoryVersion(s),
	}
}

func fastOptions() Options {
	return Options{
		NotifyTimeout:  50 * time.Millisecond,
		PollInterval:   time.Millisecond,
		MaxPollRetries: 3,
	}
}

func TestHistoryCommands(t *testing.T) {
	assert.Equal(t, []byte{0x82, 0x04, 0x00, 0x00, 0x01, 0x00, 0xc8, 0x00}, historyV1Command(ParamCO2, 1, 200))
	assert.Equal(t, []byte{0x82, 0x01, 0x00, 0x00, 0x01, 0x00, 0xff, 0xff}, historyV1Command(ParamTemperature, 0, 70000))
	assert.Equal(t, []byte{0x61, 0x01, 0x2c, 0x01}, historyV2Command(ParamTemperature, 300))
	assert.Equal(t, []byte{0x61, 0x0a, 0x01, 0x00}, historyV2Command(ParamRadonConcentration, -3))
}

func TestProbeHistoryVersion(t *testing.T) {
	assert.Equal(t, HistoryV2, probeHistoryVersion(newFakeSession(CharHistoryV1, CharHistoryV2)))
	assert.Equal(t, HistoryV1, probeHistoryVersion(newFakeSession(CharHistoryV1)))
	assert.Equal(t, HistoryNone, probeHistoryVersion(newFakeSession(CharCurrentReadings)))
	assert.Equal(t, "none", HistoryNone.String())
}

func TestV1AccumulatorOutOfOrder(t *testing.T) {
	acc := newV1Accumulator(DefaultCodec, ParamTemperature, 6, 1, 6)

	done, err := acc.apply(v1Packet(ParamTemperature, 4, words(400, 410, 420)...))
	require.NoError(t, err)
	assert.False(t, done)

	done, err = acc.apply(v1Packet(ParamHumidity, 1, 40, 41, 42))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []float64{Absent, Absent, Absent, 20, 20.5, 21}, acc.values)

	done, err = acc.apply(v1Packet(ParamTemperature, 1, words(100, 200, 300)...))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []float64{5, 10, 15, 20, 20.5, 21}, acc.values)
}

func TestV1AccumulatorArrivalOrder(t *testing.T) {
	packets := [][]byte{
		v1Packet(ParamCO2, 1, words(500, 501)...),
		v1Packet(ParamCO2, 3, words(502, 503)...),
		v1Packet(ParamCO2, 5, words(504)...),
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	for _, order := range orders {
		acc := newV1Accumulator(DefaultCodec, ParamCO2, 5, 1, 5)
		var done bool
		for _, i := range order {
			var err error
			done, err = acc.apply(packets[i])
			require.NoError(t, err)
		}
		assert.True(t, done, "%v", order)
		assert.Equal(t, []float64{500, 501, 502, 503, 504}, acc.values, "%v", order)
	}
}

func TestV1AccumulatorWindow(t *testing.T) {
	acc := newV1Accumulator(DefaultCodec, ParamHumidity, 6, 3, 4)

	done, err := acc.apply(v1Packet(ParamHumidity, 3, 40, 41))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []float64{Absent, Absent, 40, 41, Absent, Absent}, acc.values)
}

func TestV1AccumulatorTerminators(t *testing.T) {
	acc := newV1Accumulator(DefaultCodec, ParamCO2, 3, 1, 3)
	done, err := acc.apply(v1Packet(ParamCO2, 1))
	require.NoError(t, err)
	assert.True(t, done, "empty packet ends the pull")

	acc = newV1Accumulator(DefaultCodec, ParamCO2, 3, 1, 3)
	done, err = acc.apply(v1Packet(ParamCO2, 4, words(1)...))
	require.NoError(t, err)
	assert.True(t, done, "packet past the log ends the pull")
}

func TestV1AccumulatorMalformed(t *testing.T) {
	acc := newV1Accumulator(DefaultCodec, ParamCO2, 3, 1, 3)

	_, err := acc.apply([]byte{0x04, 0x01})
	assert.True(t, errors.Is(err, ErrMalformedPayload), err)

	packet := v1Packet(ParamCO2, 1, words(1, 2, 3)...)
	_, err = acc.apply(packet[:len(packet)-1])
	assert.True(t, errors.Is(err, ErrMalformedPayload), err)
}

func TestParseHistoryHeader(t *testing.T) {
	hdr, err := ParseHistoryHeader(v2Page(ParamPressure, 200, 31, words(1, 2)...))
	require.NoError(t, err)
	assert.Equal(t, HistoryHeader{
		Param:         ParamPressure,
		Interval:      60,
		TotalReadings: 200,
		Ago:           10,
		Start:         31,
		Count:         2,
	}, hdr)

	_, err = ParseHistoryHeader(make([]byte, 9))
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestV2AccumulatorSkipsOtherParams(t *testing.T) {
	acc := newV2Accumulator(DefaultCodec, ParamTemperature, 3, 3)

	done, retry, err := acc.apply(v2Page(ParamPressure, 3, 1, words(10000, 10001, 10002)...))
	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, retry)
	assert.Equal(t, emptySeries(3), acc.values)
}

func TestV2AccumulatorSamples(t *testing.T) {
	acc := newV2Accumulator(DefaultCodec, ParamRadiationDose, 2, 2)
	done, _, err := acc.apply(v2Page(ParamRadiationDose, 2, 1, 0x2a, 0x00, 0xff, 0xff, 0x07, 0x00, 0x00, 0x00))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []float64{42, 7}, acc.values)

	acc = newV2Accumulator(DefaultCodec, ParamRadonConcentration, 2, 2)
	done, _, err = acc.apply(v2Page(ParamRadonConcentration, 2, 1, 0x07, 0x00, 0x00, 0x00, 0x01, 0x1f, 0x00, 0x00))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []float64{7, Absent}, acc.values)
}

func TestV2AccumulatorMalformed(t *testing.T) {
	acc := newV2Accumulator(DefaultCodec, ParamCO2, 5, 5)
	page := v2Page(ParamCO2, 5, 1, words(1, 2, 3)...)
	_, _, err := acc.apply(page[:len(page)-2])
	assert.True(t, errors.Is(err, ErrMalformedPayload), err)
}

func TestRecordsV1(t *testing.T) {
	s := newFakeSession(CharCurrentReadings, CharCommand).
		queueNotify(CharHistoryV1,
			v1Packet(ParamTemperature, 3, words(300, 400)...),
			v1Packet(ParamCO2, 1, words(999)...),
			v1Packet(ParamTemperature, 1, words(100, 200)...),
		)
	c := testClient(s, ModelCO2Monitor, fastOptions())
	require.Equal(t, HistoryV1, c.HistoryVersion())

	values, err := c.Records(context.Background(), ParamTemperature, 4, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10, 15, 20}, values)

	writes := s.written()
	require.Len(t, writes, 1)
	assert.Equal(t, CharCommand, writes[0].uuid)
	assert.Equal(t, historyV1Command(ParamTemperature, 1, 4), writes[0].data)
	assert.Contains(t, s.unsubscribed, CharHistoryV1)
}

func TestRecordsV1Timeout(t *testing.T) {
	s := newFakeSession(CharCurrentReadings, CharCommand, CharHistoryV1).
		queueNotify(CharHistoryV1, v1Packet(ParamTemperature, 1, words(100)...))
	c := testClient(s, ModelCO2Monitor, fastOptions())

	_, err := c.Records(context.Background(), ParamTemperature, 4, 1, 4)
	assert.True(t, errors.Is(err, ErrProtocolTimeout), err)
	assert.Contains(t, s.unsubscribed, CharHistoryV1)
}

func TestRecordsV1Cancelled(t *testing.T) {
	s := newFakeSession(CharCurrentReadings, CharCommand, CharHistoryV1)
	opts := fastOptions()
	opts.NotifyTimeout = time.Minute
	c := testClient(s, ModelCO2Monitor, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Records(ctx, ParamTemperature, 4, 1, 4)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestRecordsV2(t *testing.T) {
	s := newFakeSession(CharCurrentReadings, CharCommand).
		queue(CharHistoryV2,
			v2Page(ParamHumidity, 5, 1, 40, 41, 42),
			v2Page(ParamTemperature, 5, 1, words(100, 200, 300)...),
			v2Page(ParamTemperature, 5, 4, words(400, 410)...),
		)
	c := testClient(s, ModelCO2Monitor, fastOptions())
	require.Equal(t, HistoryV2, c.HistoryVersion())

	values, err := c.Records(context.Background(), ParamTemperature, 5, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10, 15, 20, 20.5}, values)

	writes := s.written()
	require.Len(t, writes, 1)
	assert.Equal(t, historyV2Command(ParamTemperature, 1), writes[0].data)
}

func TestRecordsV2Stalled(t *testing.T) {
	cases := []struct {
		desc  string
		pages [][]byte
	}{
		{
			desc:  "wrong parameter",
			pages: [][]byte{v2Page(ParamPressure, 5, 1, words(10000)...)},
		},
		{
			desc:  "repeated page",
			pages: [][]byte{v2Page(ParamCO2, 5, 1, words(500, 501)...)},
		},
		{
			desc:  "empty page",
			pages: [][]byte{v2Page(ParamCO2, 5, 1)},
		},
	}

	for _, tc := range cases {
		s := newFakeSession(CharCurrentReadings, CharCommand).queue(CharHistoryV2, tc.pages...)
		c := testClient(s, ModelCO2Monitor, fastOptions())

		_, err := c.Records(context.Background(), ParamCO2, 5, 1, 5)
		assert.True(t, errors.Is(err, ErrProtocolTimeout), "%s: %v", tc.desc, err)
	}
}

func TestRecordsV2Window(t *testing.T) {
	s := newFakeSession(CharCurrentReadings, CharCommand).
		queue(CharHistoryV2, v2Page(ParamCO2, 200, 181, words(600, 601, 602)...))
	c := testClient(s, ModelCO2Monitor, fastOptions())

	values, err := c.Records(context.Background(), ParamCO2, 200, 181, 183)
	require.NoError(t, err)
	require.Len(t, values, 200)
	assert.Equal(t, []float64{600, 601, 602}, values[180:183])
	assert.True(t, IsAbsent(values[0]))
	assert.True(t, IsAbsent(values[199]))
}

func TestRecordsEmptyWindow(t *testing.T) {
	s := newFakeSession(CharCurrentReadings, CharCommand, CharHistoryV2)
	c := testClient(s, ModelCO2Monitor, fastOptions())

	values, err := c.Records(context.Background(), ParamCO2, 5, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, emptySeries(5), values)
	assert.Empty(t, s.written())
}

func TestRecordsErrors(t *testing.T) {
	c := testClient(newFakeSession(CharCurrentReadings), ModelCO2Monitor, fastOptions())
	_, err := c.Records(context.Background(), ParamCO2, 5, 1, 5)
	assert.Equal(t, ErrHistoryUnavailable, err)

	c = testClient(newFakeSession(CharCurrentReadings, CharHistoryV2), ModelCO2Monitor, fastOptions())
	_, err = c.Records(context.Background(), Param(6), 5, 1, 5)
	assert.Error(t, err)
}
