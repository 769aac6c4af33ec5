package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alepar/aranet/aranet"
)

var labels = []string{"address", "name"}

// Gauges exposes decoded readings to Prometheus, labelled per device.
type Gauges struct {
	Temperature        *prometheus.GaugeVec
	Humidity           *prometheus.GaugeVec
	Pressure           *prometheus.GaugeVec
	CO2Level           *prometheus.GaugeVec
	RadiationRate      *prometheus.GaugeVec
	RadiationTotal     *prometheus.GaugeVec
	RadonConcentration *prometheus.GaugeVec
	Battery            *prometheus.GaugeVec
	RSSI               *prometheus.GaugeVec
	LastSeen           *prometheus.GaugeVec
}

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

func NewGauges() *Gauges {
	return &Gauges{
		Temperature:        newGauge("aranet_temperature", "Air Temperature (units: degrees Celsius)"),
		Humidity:           newGauge("aranet_humidity", "Humidity (units: % of relative Humidity)"),
		Pressure:           newGauge("aranet_atm_pressure", "Atmospheric Pressure (units: hPa)"),
		CO2Level:           newGauge("aranet_co2_level", "Air Carbon Dioxide level (units: ppm)"),
		RadiationRate:      newGauge("aranet_radiation_rate", "Radiation dose rate (units: nSv/h)"),
		RadiationTotal:     newGauge("aranet_radiation_total", "Accumulated radiation dose (units: nSv)"),
		RadonConcentration: newGauge("aranet_radon_concentration", "Radon concentration (units: Bq/m3)"),
		Battery:            newGauge("aranet_battery", "Battery level (units: %)"),
		RSSI:               newGauge("aranet_rssi", "Received signal strength of the last advertisement (units: dBm)"),
		LastSeen:           newGauge("aranet_last_seen_timestamp_seconds", "Time of the last advertisement (units: seconds since epoch)"),
	}
}

func (g *Gauges) all() []*prometheus.GaugeVec {
	return []*prometheus.GaugeVec{
		g.Temperature, g.Humidity, g.Pressure, g.CO2Level, g.RadiationRate,
		g.RadiationTotal, g.RadonConcentration, g.Battery, g.RSSI, g.LastSeen,
	}
}

func (g *Gauges) Register(reg prometheus.Registerer) error {
	for _, gauge := range g.all() {
		if err := reg.Register(gauge); err != nil {
			return err
		}
	}
	return nil
}

// set reports v, or stops reporting the series when v is Absent so that a
// missing measurement shows up as a gap.
func set(gauge *prometheus.GaugeVec, v float64, lv ...string) {
	if aranet.IsAbsent(v) {
		gauge.DeleteLabelValues(lv...)
		return
	}
	gauge.WithLabelValues(lv...).Set(v)
}

// ObserveReading updates every gauge from r.
func (g *Gauges) ObserveReading(address, name string, r aranet.CurrentReading) {
	set(g.Temperature, r.Temperature, address, name)
	set(g.Humidity, r.Humidity, address, name)
	set(g.Pressure, r.Pressure, address, name)
	set(g.CO2Level, r.CO2, address, name)
	set(g.RadiationRate, r.RadiationRate, address, name)
	set(g.RadiationTotal, r.RadiationTotal, address, name)
	set(g.RadonConcentration, r.RadonConcentration, address, name)
	set(g.Battery, float64(r.Battery), address, name)
}

// ObserveAdvertisement records signal data and any readings the
// advertisement carries. It reports whether readings were present.
func (g *Gauges) ObserveAdvertisement(name string, adv aranet.Advertisement) bool {
	g.RSSI.WithLabelValues(adv.Address, name).Set(float64(adv.RSSI))
	g.LastSeen.WithLabelValues(adv.Address, name).Set(float64(adv.SeenAt.Unix()))
	if adv.Readings == nil {
		return false
	}
	g.ObserveReading(adv.Address, name, *adv.Readings)
	return true
}

// Forget drops every series of a device.
func (g *Gauges) Forget(address, name string) {
	for _, gauge := range g.all() {
		gauge.DeleteLabelValues(address, name)
	}
}
