package export

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/aranet/aranet"
	"github.com/alepar/aranet/config"
)

// influxBatchSize bounds the points sent per write request.
const influxBatchSize = 5000

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxWriter stores readings and history as InfluxDB points tagged with
// the device name and model.
type InfluxWriter struct {
	client      influxdb2.Client
	writer      pointWriter
	measurement string
}

func NewInfluxWriter(cfg config.InfluxConfig) *InfluxWriter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxWriter{
		client:      client,
		writer:      client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.Measurement,
	}
}

func tags(device string, model aranet.DeviceModel) map[string]string {
	return map[string]string{
		"device": device,
		"model":  model.String(),
	}
}

func toFieldMap(fields []Field) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

// ReadingPoint converts a reading; nil when it carries no quantity.
func ReadingPoint(measurement, device string, r aranet.CurrentReading, at time.Time) *write.Point {
	fields := ReadingFields(r)
	if len(fields) == 0 {
		return nil
	}
	return influxdb2.NewPoint(measurement, tags(device, r.Model), toFieldMap(fields), at)
}

// RecordPoints converts every history entry that carries a quantity.
func RecordPoints(measurement, device string, rec aranet.Record) []*write.Point {
	pts := make([]*write.Point, 0, len(rec.Values))
	for _, it := range rec.Values {
		fields := recordFields(it)
		if len(fields) == 0 {
			continue
		}
		pts = append(pts, influxdb2.NewPoint(measurement, tags(device, rec.Model), toFieldMap(fields), it.Date))
	}
	return pts
}

func (w *InfluxWriter) WriteReading(ctx context.Context, device string, r aranet.CurrentReading, at time.Time) error {
	pt := ReadingPoint(w.measurement, device, r, at)
	if pt == nil {
		return nil
	}
	return errors.Wrap(w.writer.WritePoint(ctx, pt), "failed to write reading to influxdb")
}

func (w *InfluxWriter) WriteRecord(ctx context.Context, device string, rec aranet.Record) error {
	pts := RecordPoints(w.measurement, device, rec)
	for len(pts) > 0 {
		n := len(pts)
		if n > influxBatchSize {
			n = influxBatchSize
		}
		log.Debugf("writing %d history points to influxdb", n)
		if err := w.writer.WritePoint(ctx, pts[:n]...); err != nil {
			return errors.Wrap(err, "failed to write history to influxdb")
		}
		pts = pts[n:]
	}
	return nil
}

func (w *InfluxWriter) Close() {
	if w.client != nil {
		w.client.Close()
	}
}
