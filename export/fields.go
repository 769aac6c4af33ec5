package export

import "github.com/alepar/aranet/aranet"

// Field is one named quantity of a reading.
type Field struct {
	Name  string
	Value float64
}

// ReadingFields lists the quantities present in r; Absent ones are skipped.
func ReadingFields(r aranet.CurrentReading) []Field {
	all := []Field{
		{"temperature", r.Temperature},
		{"humidity", r.Humidity},
		{"pressure", r.Pressure},
		{"co2", r.CO2},
		{"radiation_rate", r.RadiationRate},
		{"radiation_total", r.RadiationTotal},
		{"radiation_duration", float64(r.RadiationDuration)},
		{"radon_concentration", r.RadonConcentration},
		{"radon_average_24h", r.RadonAverage24h.Value},
		{"radon_average_7d", r.RadonAverage7d.Value},
		{"radon_average_30d", r.RadonAverage30d.Value},
		{"battery", float64(r.Battery)},
	}
	fields := make([]Field, 0, len(all))
	for _, f := range all {
		if !aranet.IsAbsent(f.Value) {
			fields = append(fields, f)
		}
	}
	return fields
}

// recordFields lists the quantities present in a history entry.
func recordFields(it aranet.RecordItem) []Field {
	all := []Field{
		{"temperature", it.Temperature},
		{"humidity", it.Humidity},
		{"pressure", it.Pressure},
		{"co2", it.CO2},
		{"radiation_dose", it.RadiationDose},
		{"radiation_dose_rate", it.RadiationDoseRate},
		{"radiation_dose_integral", it.RadiationDoseIntegral},
		{"radon_concentration", it.RadonConcentration},
	}
	fields := make([]Field, 0, len(all))
	for _, f := range all {
		if !aranet.IsAbsent(f.Value) {
			fields = append(fields, f)
		}
	}
	return fields
}
