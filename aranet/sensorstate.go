package aranet

import "fmt"

// BuzzerMode is the alarm behaviour reported in the sensor state.
type BuzzerMode int

const (
	BuzzerUnsupported BuzzerMode = iota
	BuzzerOff
	// BuzzerOnce sounds once when a threshold is crossed.
	BuzzerOnce
	// BuzzerEachMeasurement sounds on every measurement above threshold.
	BuzzerEachMeasurement
)

func (b BuzzerMode) String() string {
	switch b {
	case BuzzerOff:
		return "off"
	case BuzzerOnce:
		return "once"
	case BuzzerEachMeasurement:
		return "each measurement"
	}
	return "unsupported"
}

func (b BuzzerMode) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// SensorState is the device configuration exposed on CharSensorState.
type SensorState struct {
	Model            DeviceModel      `json:"-"`
	Buzzer           BuzzerMode       `json:"buzzer"`
	CalibrationState CalibrationState `json:"calibration_state"`
	Integrations     bool             `json:"integrations"`
	ExtendedRange    bool             `json:"extended_range"`
	Fahrenheit       bool             `json:"fahrenheit"`
	AlternativeUnit  bool             `json:"alternative_unit"`
}

// Units names the display unit of the model's headline quantity.
func (s SensorState) Units() string {
	switch s.Model {
	case ModelRadiationDosimeter:
		if s.AlternativeUnit {
			return "µR/h"
		}
		return "µSv/h"
	case ModelRadonDetector:
		if s.AlternativeUnit {
			return "pCi/L"
		}
		return "Bq/m³"
	}
	if s.Fahrenheit {
		return "°F"
	}
	return "°C"
}

const sensorStateMinLen = 3

// DecodeSensorState decodes the CharSensorState characteristic.
func DecodeSensorState(buf []byte) (SensorState, error) {
	if len(buf) < sensorStateMinLen {
		return SensorState{}, malformed("sensor state of %d bytes", len(buf))
	}
	model := modelFromByte(buf[0])
	flags, units := buf[1], buf[2]

	return SensorState{
		Model:            model,
		Buzzer:           buzzerMode(model, flags&0x01 != 0, flags&0x02 != 0),
		CalibrationState: CalibrationState((flags >> 2) & 0x03),
		Integrations:     flags&0x20 != 0,
		ExtendedRange:    flags&0x40 != 0,
		Fahrenheit:       units&0x01 != 0,
		AlternativeUnit:  units&0x02 != 0,
	}, nil
}

func buzzerMode(model DeviceModel, enabled, repeat bool) BuzzerMode {
	switch model {
	case ModelCO2Monitor:
		if !enabled {
			return BuzzerOff
		}
		if repeat {
			return BuzzerOnce
		}
		return BuzzerEachMeasurement
	case ModelRadonDetector:
		if !enabled {
			return BuzzerOff
		}
		if repeat {
			return BuzzerEachMeasurement
		}
		return BuzzerOnce
	}
	return BuzzerUnsupported
}

func (s SensorState) String() string {
	return fmt.Sprintf("%s buzzer=%s calibration=%s integrations=%t extended_range=%t units=%s",
		s.Model, s.Buzzer, s.CalibrationState, s.Integrations, s.ExtendedRange, s.Units())
}
