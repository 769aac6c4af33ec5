package aranet

import "fmt"

// Param identifies a logged quantity. The value is the id used on the wire.
type Param uint8

const (
	ParamTemperature           Param = 1
	ParamHumidity              Param = 2
	ParamPressure              Param = 3
	ParamCO2                   Param = 4
	ParamHumidity2             Param = 5
	ParamRadiationDose         Param = 7
	ParamRadiationDoseRate     Param = 8
	ParamRadiationDoseIntegral Param = 9
	ParamRadonConcentration    Param = 10
)

var paramNames = map[Param]string{
	ParamTemperature:           "temperature",
	ParamHumidity:              "humidity",
	ParamPressure:              "pressure",
	ParamCO2:                   "co2",
	ParamHumidity2:             "humidity2",
	ParamRadiationDose:         "radiation_dose",
	ParamRadiationDoseRate:     "radiation_dose_rate",
	ParamRadiationDoseIntegral: "radiation_dose_integral",
	ParamRadonConcentration:    "radon_concentration",
}

func (p Param) String() string {
	if name, ok := paramNames[p]; ok {
		return name
	}
	return fmt.Sprintf("param(%d)", uint8(p))
}

func (p Param) Valid() bool {
	_, ok := paramNames[p]
	return ok
}

// Width is the native width in bytes of one raw sample.
func (p Param) Width() int {
	switch p {
	case ParamHumidity:
		return 1
	case ParamRadiationDoseIntegral:
		return 8
	default:
		return 2
	}
}

// historyV2Width is the per-sample stride in a v2 history page.
func (p Param) historyV2Width() int {
	switch p {
	case ParamHumidity:
		return 1
	case ParamRadiationDose, ParamRadiationDoseRate, ParamRadonConcentration:
		return 4
	case ParamRadiationDoseIntegral:
		return 8
	default:
		return 2
	}
}

// Unit returns the physical unit of decoded values.
func (p Param) Unit() string {
	switch p {
	case ParamTemperature:
		return "°C"
	case ParamHumidity, ParamHumidity2:
		return "%"
	case ParamPressure:
		return "hPa"
	case ParamCO2:
		return "ppm"
	case ParamRadiationDose, ParamRadiationDoseIntegral:
		return "nSv"
	case ParamRadiationDoseRate:
		return "nSv/h"
	case ParamRadonConcentration:
		return "Bq/m³"
	}
	return ""
}
