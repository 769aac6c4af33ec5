package aranet

import "time"

// RecordItem is one history log entry. Quantities that were not pulled hold
// Absent.
type RecordItem struct {
	Date time.Time `json:"date"`

	Temperature           float64 `json:"temperature"`
	Humidity              float64 `json:"humidity"`
	Pressure              float64 `json:"pressure"`
	CO2                   float64 `json:"co2"`
	RadiationDose         float64 `json:"radiation_dose"`
	RadiationDoseRate     float64 `json:"radiation_dose_rate"`
	RadiationDoseIntegral float64 `json:"radiation_dose_integral"`
	RadonConcentration    float64 `json:"radon_concentration"`
}

func newRecordItem(date time.Time) RecordItem {
	return RecordItem{
		Date:                  date,
		Temperature:           Absent,
		Humidity:              Absent,
		Pressure:              Absent,
		CO2:                   Absent,
		RadiationDose:         Absent,
		RadiationDoseRate:     Absent,
		RadiationDoseIntegral: Absent,
		RadonConcentration:    Absent,
	}
}

// Value returns the item's value for p. Both humidity parameters share one
// field.
func (it RecordItem) Value(p Param) float64 {
	switch p {
	case ParamTemperature:
		return it.Temperature
	case ParamHumidity, ParamHumidity2:
		return it.Humidity
	case ParamPressure:
		return it.Pressure
	case ParamCO2:
		return it.CO2
	case ParamRadiationDose:
		return it.RadiationDose
	case ParamRadiationDoseRate:
		return it.RadiationDoseRate
	case ParamRadiationDoseIntegral:
		return it.RadiationDoseIntegral
	case ParamRadonConcentration:
		return it.RadonConcentration
	}
	return Absent
}

func (it *RecordItem) set(p Param, v float64) {
	switch p {
	case ParamTemperature:
		it.Temperature = v
	case ParamHumidity, ParamHumidity2:
		it.Humidity = v
	case ParamPressure:
		it.Pressure = v
	case ParamCO2:
		it.CO2 = v
	case ParamRadiationDose:
		it.RadiationDose = v
	case ParamRadiationDoseRate:
		it.RadiationDoseRate = v
	case ParamRadiationDoseIntegral:
		it.RadiationDoseIntegral = v
	case ParamRadonConcentration:
		it.RadonConcentration = v
	}
}

// Record is the result of a history pull.
type Record struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	Model           DeviceModel  `json:"-"`
	RecordsOnDevice int          `json:"records_on_device"`
	Filter          Filter       `json:"filter"`
	Values          []RecordItem `json:"values"`
}

// zipRecords builds the items of slots [begin, end] from the log timestamps
// and the per-parameter series, all indexed by slot-1.
func zipRecords(times []time.Time, begin, end int, series map[Param][]float64) []RecordItem {
	if begin == OutOfRange || end == OutOfRange || begin > end {
		return nil
	}
	items := make([]RecordItem, 0, end-begin+1)
	for slot := begin; slot <= end; slot++ {
		idx := slot - 1
		if idx < 0 || idx >= len(times) {
			continue
		}
		item := newRecordItem(times[idx])
		for p, values := range series {
			if idx < len(values) {
				item.set(p, values[idx])
			}
		}
		items = append(items, item)
	}
	return items
}
