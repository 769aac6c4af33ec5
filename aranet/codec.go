package aranet

import (
	"math"

	"github.com/pkg/errors"
)

// Absent marks a quantity with no valid measurement: not applicable to the
// device model, or a sentinel pattern reported by the device (e.g. while it
// calibrates).
const Absent = -1

func IsAbsent(v float64) bool {
	return v == Absent
}

// TemperatureRule selects how raw temperature words are checked for the
// no-data sentinel. Firmware revisions disagree, so the rule is explicit.
type TemperatureRule int

const (
	// TemperatureBit14 treats any word with bit 14 set as no data.
	TemperatureBit14 TemperatureRule = iota
	// TemperatureLegacyClamp matches older firmware: only 0x4000 is no data and
	// negative int16 encodings are clamped to 0 °C.
	TemperatureLegacyClamp
)

// Codec converts raw sample words to physical values and back.
type Codec struct {
	Temperature TemperatureRule
}

// DefaultCodec follows current firmware.
var DefaultCodec = Codec{Temperature: TemperatureBit14}

// Decode converts with DefaultCodec.
func Decode(p Param, raw uint64) float64 {
	return DefaultCodec.Decode(p, raw)
}

func (c Codec) Decode(p Param, raw uint64) float64 {
	switch p {
	case ParamCO2:
		if raw&0x8000 != 0 {
			return Absent
		}
		return float64(raw)
	case ParamPressure, ParamHumidity2:
		if raw&0x8000 != 0 {
			return Absent
		}
		return float64(raw) / 10
	case ParamTemperature:
		return c.decodeTemperature(raw)
	case ParamHumidity:
		if raw&0x80 != 0 || raw > 0xFF {
			return Absent
		}
		return float64(raw)
	case ParamRadiationDose:
		if raw&0x8000 != 0 {
			return Absent
		}
		return float64(raw)
	case ParamRadiationDoseRate:
		if raw&0x8000 != 0 {
			return Absent
		}
		return float64(raw * 10)
	case ParamRadiationDoseIntegral:
		if raw&(1<<63) != 0 {
			return Absent
		}
		return float64(raw)
	case ParamRadonConcentration:
		if raw >= radonErrorBase {
			return Absent
		}
		return float64(raw)
	}
	return Absent
}

// Raw radon words from 0x1F00 upwards are error codes: 0x1F00 general error,
// 0x1F01 no data, 0x1F02 high humidity fault.
const (
	radonErrorBase = 0x1F00
	radonNoData    = 0x1F01
)

func (c Codec) decodeTemperature(raw uint64) float64 {
	if c.Temperature == TemperatureLegacyClamp {
		if raw == 0x4000 {
			return Absent
		}
		if raw&0x8000 != 0 {
			return 0
		}
	} else if raw&0x4000 != 0 {
		return Absent
	}
	// raw is in 0.05 °C steps; (raw+1)/2 rounds half-up to tenths
	return float64((raw+1)/2) / 10
}

// Encode is the inverse of Decode. Absent encodes to the parameter's
// no-data pattern.
func (c Codec) Encode(p Param, v float64) (uint64, error) {
	if IsAbsent(v) {
		return sentinel(p)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("cannot encode %v for %s", v, p)
	}

	var raw uint64
	var limit uint64
	switch p {
	case ParamCO2, ParamRadiationDose:
		raw, limit = uint64(math.Round(v)), 0x8000
	case ParamPressure, ParamHumidity2:
		raw, limit = uint64(math.Round(v*10)), 0x8000
	case ParamTemperature:
		raw, limit = uint64(math.Round(v*20)), 0x4000
	case ParamHumidity:
		raw, limit = uint64(math.Round(v)), 0x80
	case ParamRadiationDoseRate:
		raw, limit = uint64(math.Round(v/10)), 0x8000
	case ParamRadiationDoseIntegral:
		raw, limit = uint64(math.Round(v)), 1<<63
	case ParamRadonConcentration:
		raw, limit = uint64(math.Round(v)), radonErrorBase
	default:
		return 0, errors.Errorf("cannot encode unknown %s", p)
	}
	if raw >= limit {
		return 0, errors.Errorf("%v out of range for %s", v, p)
	}
	return raw, nil
}

func sentinel(p Param) (uint64, error) {
	switch p {
	case ParamCO2, ParamPressure, ParamHumidity2, ParamRadiationDose, ParamRadiationDoseRate:
		return 0x8000, nil
	case ParamTemperature:
		return 0x4000, nil
	case ParamHumidity:
		return 0x80, nil
	case ParamRadiationDoseIntegral:
		return 1 << 63, nil
	case ParamRadonConcentration:
		return radonNoData, nil
	}
	return 0, errors.Errorf("no sentinel for %s", p)
}

// RadonAverage is one rolling radon average reported by the radon detector.
type RadonAverage struct {
	// Value in Bq/m³, Absent while the window is still filling
	Value float64 `json:"value"`
	// Time is the averaging window length in seconds
	Time int `json:"time"`
	// Progress is reported by the device while the window fills
	Progress int `json:"progress"`
}

// DecodeRadonAverage unpacks a 32-bit rolling average word. A top byte of
// 0xFF means the average is still accumulating; the low 24 bits then carry
// its progress.
func DecodeRadonAverage(seconds, raw uint32) RadonAverage {
	avg := RadonAverage{Time: int(seconds), Value: Absent, Progress: Absent}
	if raw>>24 == 0xFF {
		avg.Progress = int(raw & 0xFFFFFF)
		return avg
	}
	avg.Value = Decode(ParamRadonConcentration, uint64(raw))
	return avg
}
