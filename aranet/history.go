package aranet

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// HistoryVersion is the log retrieval protocol a device speaks.
type HistoryVersion int

const (
	HistoryNone HistoryVersion = iota
	// HistoryV1 streams pages as notifications.
	HistoryV1
	// HistoryV2 returns one page per read of CharHistoryV2.
	HistoryV2
)

func (v HistoryVersion) String() string {
	switch v {
	case HistoryV1:
		return "v1"
	case HistoryV2:
		return "v2"
	}
	return "none"
}

// probeHistoryVersion prefers v2 when both characteristics exist.
func probeHistoryVersion(s Session) HistoryVersion {
	switch {
	case s.HasCharacteristic(CharHistoryV2):
		return HistoryV2
	case s.HasCharacteristic(CharHistoryV1):
		return HistoryV1
	}
	return HistoryNone
}

func historyV1Command(p Param, start, end int) []byte {
	cmd := make([]byte, 8)
	cmd[0] = cmdHistoryV1
	cmd[1] = byte(p)
	binary.LittleEndian.PutUint16(cmd[4:], clampSlot(start))
	binary.LittleEndian.PutUint16(cmd[6:], clampSlot(end))
	return cmd
}

func historyV2Command(p Param, start int) []byte {
	cmd := make([]byte, 4)
	cmd[0] = cmdHistoryV2
	cmd[1] = byte(p)
	binary.LittleEndian.PutUint16(cmd[2:], clampSlot(start))
	return cmd
}

func clampSlot(slot int) uint16 {
	switch {
	case slot < 1:
		return 1
	case slot > 0xFFFF:
		return 0xFFFF
	}
	return uint16(slot)
}

func emptySeries(total int) []float64 {
	values := make([]float64, total)
	for i := range values {
		values[i] = Absent
	}
	return values
}

func readUint(b []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

const v1PacketHeaderLen = 4

// v1Accumulator folds v1 notification packets into a positional series.
// Packets may arrive in any order; each one only writes the slots it names.
type v1Accumulator struct {
	param  Param
	codec  Codec
	values []float64
	begin  int
	end    int
	seen   []bool
	// missing counts slots of [begin, end] not yet written
	missing int
}

func newV1Accumulator(codec Codec, p Param, total, begin, end int) *v1Accumulator {
	return &v1Accumulator{
		param:   p,
		codec:   codec,
		values:  emptySeries(total),
		begin:   begin,
		end:     end,
		seen:    make([]bool, total),
		missing: end - begin + 1,
	}
}

// apply consumes one packet `param:u8 start:u16 count:u8 samples...` and
// reports whether the pull is complete.
func (a *v1Accumulator) apply(packet []byte) (bool, error) {
	if len(packet) < v1PacketHeaderLen {
		return false, malformed("history packet of %d bytes", len(packet))
	}
	p := Param(packet[0])
	start := int(binary.LittleEndian.Uint16(packet[1:3]))
	count := int(packet[3])

	if p != a.param {
		log.Debugf("ignoring history packet for %s while pulling %s", p, a.param)
		return false, nil
	}
	if start > len(a.values) || count == 0 {
		return true, nil
	}

	width := p.Width()
	payload := packet[v1PacketHeaderLen:]
	if len(payload) < count*width {
		return false, malformed("history packet declares %d %s samples, carries %d bytes", count, p, len(payload))
	}
	for i := 0; i < count; i++ {
		idx := start - 1 + i
		if idx < 0 {
			continue
		}
		if idx >= len(a.values) {
			break
		}
		a.values[idx] = a.codec.Decode(p, readUint(payload[i*width:], width))
		if idx >= a.begin-1 && idx < a.end && !a.seen[idx] {
			a.seen[idx] = true
			a.missing--
		}
	}
	return a.missing <= 0, nil
}

const historyHeaderLen = 10

// HistoryHeader prefixes every v2 history page.
type HistoryHeader struct {
	Param         Param
	Interval      int
	TotalReadings int
	Ago           int
	Start         int
	Count         int
}

func ParseHistoryHeader(page []byte) (HistoryHeader, error) {
	if len(page) < historyHeaderLen {
		return HistoryHeader{}, malformed("history page of %d bytes", len(page))
	}
	return HistoryHeader{
		Param:         Param(page[0]),
		Interval:      int(binary.LittleEndian.Uint16(page[1:3])),
		TotalReadings: int(binary.LittleEndian.Uint16(page[3:5])),
		Ago:           int(binary.LittleEndian.Uint16(page[5:7])),
		Start:         int(binary.LittleEndian.Uint16(page[7:9])),
		Count:         int(page[9]),
	}, nil
}

// v2Sample extracts one raw sample. Dose and dose rate are 16-bit values in a
// 4-byte slot.
func v2Sample(p Param, b []byte) uint64 {
	switch p {
	case ParamRadiationDose, ParamRadiationDoseRate:
		return readUint(b, 2)
	}
	return readUint(b, p.historyV2Width())
}

// v2Accumulator folds polled v2 pages into a positional series.
type v2Accumulator struct {
	param  Param
	codec  Codec
	values []float64
	end    int
	// last is the highest slot index written so far
	last int
}

func newV2Accumulator(codec Codec, p Param, total, end int) *v2Accumulator {
	return &v2Accumulator{
		param:  p,
		codec:  codec,
		values: emptySeries(total),
		end:    end,
		last:   -1,
	}
}

// apply consumes one page. retry is set when the page carried nothing new:
// another parameter, an empty page or a repeat.
func (a *v2Accumulator) apply(page []byte) (done, retry bool, err error) {
	hdr, err := ParseHistoryHeader(page)
	if err != nil {
		return false, false, err
	}
	if hdr.Param != a.param || hdr.Count == 0 {
		return false, true, nil
	}
	if hdr.Start > len(a.values) {
		return true, false, nil
	}

	width := a.param.historyV2Width()
	payload := page[historyHeaderLen:]
	payload = payload[:len(payload)/width*width]
	if len(payload)/width < hdr.Count {
		return false, false, malformed("history page declares %d %s samples, carries %d bytes",
			hdr.Count, a.param, len(payload))
	}

	last := -1
	for i := 0; i < hdr.Count; i++ {
		idx := hdr.Start - 1 + i
		if idx < 0 {
			continue
		}
		if idx >= len(a.values) {
			break
		}
		a.values[idx] = a.codec.Decode(a.param, v2Sample(a.param, payload[i*width:]))
		last = idx
	}

	if last+1 >= a.end || hdr.Start-1+hdr.Count >= hdr.TotalReadings {
		return true, false, nil
	}
	if last <= a.last {
		return false, true, nil
	}
	a.last = last
	return false, false, nil
}

// Records pulls one parameter's history for slots [begin, end]. The result
// has one entry per stored log slot; slots outside the range stay Absent.
func (c *Client) Records(ctx context.Context, p Param, total, begin, end int) ([]float64, error) {
	if !p.Valid() {
		return nil, errors.Errorf("unknown parameter %d", uint8(p))
	}
	if c.history == HistoryNone {
		return nil, ErrHistoryUnavailable
	}
	if begin < 1 {
		begin = 1
	}
	if end > total {
		end = total
	}
	if total <= 0 || begin > end {
		return emptySeries(total), nil
	}

	log.Debugf("pulling %s history %d..%d of %d (%s)", p, begin, end, total, c.history)
	switch c.history {
	case HistoryV2:
		return c.pullV2(ctx, p, total, begin, end)
	default:
		return c.pullV1(ctx, p, total, begin, end)
	}
}

func (c *Client) pullV1(ctx context.Context, p Param, total, begin, end int) ([]float64, error) {
	acc := newV1Accumulator(c.opts.Codec, p, total, begin, end)

	if err := c.write(ctx, CharCommand, historyV1Command(p, begin, end)); err != nil {
		return nil, err
	}

	packets := make(chan []byte, 16)
	stop := make(chan struct{})
	err := c.session.Subscribe(ctx, CharHistoryV1, func(b []byte) {
		packet := append([]byte(nil), b...)
		select {
		case packets <- packet:
		case <-stop:
		}
	})
	if err != nil {
		return nil, transportErr("subscribe", CharHistoryV1, err)
	}
	defer func() {
		close(stop)
		if err := c.session.Unsubscribe(context.Background(), CharHistoryV1); err != nil {
			log.Debugf("unsubscribe from history: %s", err)
		}
	}()

	timeout := c.opts.NotifyTimeout
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, errors.Wrapf(ErrProtocolTimeout, "no %s notification within %s", p, timeout)
		case packet := <-packets:
			done, err := acc.apply(packet)
			if err != nil {
				return nil, errors.Wrapf(err, "%s history", p)
			}
			if done {
				return acc.values, nil
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(timeout)
		}
	}
}

func (c *Client) pullV2(ctx context.Context, p Param, total, begin, end int) ([]float64, error) {
	acc := newV2Accumulator(c.opts.Codec, p, total, end)

	if err := c.write(ctx, CharCommand, historyV2Command(p, begin)); err != nil {
		return nil, err
	}

	retries := 0
	for {
		page, err := c.read(ctx, CharHistoryV2)
		if err != nil {
			return nil, err
		}
		done, retry, err := acc.apply(page)
		if err != nil {
			return nil, errors.Wrapf(err, "%s history", p)
		}
		if done {
			return acc.values, nil
		}
		if !retry {
			retries = 0
			continue
		}

		retries++
		if retries > c.opts.MaxPollRetries {
			return nil, errors.Wrapf(ErrProtocolTimeout, "%s history stalled after %d polls", p, retries)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.PollInterval):
		}
	}
}
