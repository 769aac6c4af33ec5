package aranet

import (
	"fmt"
	"strings"
)

// DeviceModel selects the characteristic and advertisement layouts. The
// numeric value is the discriminant used by the devices themselves.
type DeviceModel uint8

const (
	ModelCO2Monitor         DeviceModel = 0
	ModelDualSensor         DeviceModel = 1
	ModelRadiationDosimeter DeviceModel = 2
	ModelRadonDetector      DeviceModel = 3
	ModelUnknown            DeviceModel = 0xFF
)

func (m DeviceModel) String() string {
	switch m {
	case ModelCO2Monitor:
		return "Aranet4"
	case ModelDualSensor:
		return "Aranet2"
	case ModelRadiationDosimeter:
		return "Aranet Radiation"
	case ModelRadonDetector:
		return "Aranet Radon Plus"
	}
	return "Unknown"
}

func modelFromByte(b byte) DeviceModel {
	m := DeviceModel(b)
	if m > ModelRadonDetector {
		return ModelUnknown
	}
	return m
}

// Params lists the quantities logged by the model, in the order they are
// pulled from the history log.
func (m DeviceModel) Params() []Param {
	switch m {
	case ModelCO2Monitor:
		return []Param{ParamTemperature, ParamHumidity, ParamPressure, ParamCO2}
	case ModelDualSensor:
		return []Param{ParamTemperature, ParamHumidity2}
	case ModelRadiationDosimeter:
		return []Param{ParamRadiationDose, ParamRadiationDoseRate, ParamRadiationDoseIntegral}
	case ModelRadonDetector:
		return []Param{ParamTemperature, ParamHumidity2, ParamPressure, ParamRadonConcentration}
	}
	return nil
}

// Status is the display color of the CO2 monitor and radon detector.
type Status int

const (
	StatusNone  Status = 0
	StatusGreen Status = 1
	StatusAmber Status = 2
	StatusRed   Status = 3
	StatusBlue  Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusGreen:
		return "GREEN"
	case StatusAmber:
		return "AMBER"
	case StatusRed:
		return "RED"
	case StatusBlue:
		return "BLUE"
	case Absent:
		return "-"
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ThresholdStatus reports a dual sensor quantity against its thresholds.
type ThresholdStatus int

const (
	ThresholdNone  ThresholdStatus = 0
	ThresholdUnder ThresholdStatus = 1
	ThresholdOver  ThresholdStatus = 2
	ThresholdError ThresholdStatus = 3
)

func (s ThresholdStatus) String() string {
	switch s {
	case ThresholdNone:
		return "NONE"
	case ThresholdUnder:
		return "UNDER"
	case ThresholdOver:
		return "OVER"
	case ThresholdError:
		return "ERROR"
	}
	return "-"
}

func (s ThresholdStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CurrentReading is a snapshot of a device. Quantities that do not apply to
// Model hold Absent.
type CurrentReading struct {
	Name    string      `json:"name,omitempty"`
	Version string      `json:"version,omitempty"`
	Model   DeviceModel `json:"-"`

	// units: degrees Celsius
	Temperature float64 `json:"temperature"`
	// units: % of relative humidity
	Humidity float64 `json:"humidity"`
	// units: hPa
	Pressure float64 `json:"pressure"`
	// units: ppm
	CO2 float64 `json:"co2"`

	// units: nSv/h
	RadiationRate float64 `json:"radiation_rate"`
	// units: nSv
	RadiationTotal float64 `json:"radiation_total"`
	// units: seconds
	RadiationDuration int `json:"radiation_duration"`

	// units: Bq/m3
	RadonConcentration float64      `json:"radon_concentration"`
	RadonAverage24h    RadonAverage `json:"radon_average_24h"`
	RadonAverage7d     RadonAverage `json:"radon_average_7d"`
	RadonAverage30d    RadonAverage `json:"radon_average_30d"`

	Battery           int             `json:"battery"`
	Status            Status          `json:"status"`
	StatusTemperature ThresholdStatus `json:"status_temperature"`
	StatusHumidity    ThresholdStatus `json:"status_humidity"`

	// Interval between log entries, seconds
	Interval int `json:"interval"`
	// Ago is the number of seconds since the last log entry
	Ago int `json:"ago"`
	// Stored is the number of entries in the history log
	Stored  int `json:"stored"`
	Counter int `json:"counter"`
}

// NewCurrentReading returns a reading for model with every field Absent.
func NewCurrentReading(model DeviceModel) CurrentReading {
	absentAvg := RadonAverage{Value: Absent, Time: Absent, Progress: Absent}
	return CurrentReading{
		Model:              model,
		Temperature:        Absent,
		Humidity:           Absent,
		Pressure:           Absent,
		CO2:                Absent,
		RadiationRate:      Absent,
		RadiationTotal:     Absent,
		RadiationDuration:  Absent,
		RadonConcentration: Absent,
		RadonAverage24h:    absentAvg,
		RadonAverage7d:     absentAvg,
		RadonAverage30d:    absentAvg,
		Battery:            Absent,
		Status:             Absent,
		StatusTemperature:  Absent,
		StatusHumidity:     Absent,
		Interval:           Absent,
		Ago:                Absent,
		Stored:             Absent,
		Counter:            Absent,
	}
}

// ModelFromName guesses the model from an advertised local name. It only
// corroborates what the payload says.
func ModelFromName(name string) DeviceModel {
	switch {
	case strings.HasPrefix(name, "Aranet4"):
		return ModelCO2Monitor
	case strings.HasPrefix(name, "Aranet2"):
		return ModelDualSensor
	case strings.HasPrefix(name, "Aranet☢"):
		return ModelRadiationDosimeter
	case strings.HasPrefix(name, "AranetRn"):
		return ModelRadonDetector
	}
	return ModelUnknown
}
