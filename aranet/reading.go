package aranet

import (
	"bytes"
	"encoding/binary"
)

// GATT current readings layouts, little endian. The CO2 monitor exposes the
// first two on CharCurrentReadings and CharCurrentReadingsDetails; the other
// models use CharCurrentReadingsAR2 and lead with their model discriminant.

type rawCO2Reading struct {
	CO2         uint16
	Temperature uint16
	Pressure    uint16
	Humidity    uint8
	Battery     uint8
	Status      uint8
}

type rawCO2ReadingDetailed struct {
	CO2         uint16
	Temperature uint16
	Pressure    uint16
	Humidity    uint8
	Battery     uint8
	Status      uint8
	Interval    uint16
	Ago         uint16
}

type rawDualReading struct {
	Model       uint16
	Interval    uint16
	Ago         uint16
	Battery     uint8
	Temperature uint16
	Humidity    uint16
	Status      uint8
}

type rawRadiationReading struct {
	Model    uint16
	Interval uint16
	Ago      uint16
	Battery  uint8
	Rate     uint32
	Total    uint64
	Duration uint32
	Status   uint8
}

type rawRadonReading struct {
	Model       uint16
	Interval    uint16
	Ago         uint16
	Battery     uint8
	Temperature uint16
	Pressure    uint16
	Humidity    uint16
	Radon       uint32
	Status      uint8
	Averages    [3]struct {
		Time  uint32
		Value uint32
	}
}

// DecodeReading unpacks a current readings characteristic for model. It is
// a pure function: the model comes from ProbeModel, never from hidden state.
func DecodeReading(model DeviceModel, buf []byte) (CurrentReading, error) {
	return DefaultCodec.DecodeReading(model, buf)
}

func (c Codec) DecodeReading(model DeviceModel, buf []byte) (CurrentReading, error) {
	switch model {
	case ModelCO2Monitor:
		return c.decodeCO2Reading(buf)
	case ModelDualSensor:
		return c.decodeDualReading(buf)
	case ModelRadiationDosimeter:
		return c.decodeRadiationReading(buf)
	case ModelRadonDetector:
		return c.decodeRadonReading(buf)
	}
	return CurrentReading{}, malformed("no reading layout for %s", model)
}

func (c Codec) decodeCO2Reading(buf []byte) (CurrentReading, error) {
	var raw rawCO2ReadingDetailed
	switch len(buf) {
	case binary.Size(rawCO2Reading{}):
		var basic rawCO2Reading
		if err := unpack(buf, &basic); err != nil {
			return CurrentReading{}, err
		}
		raw = rawCO2ReadingDetailed{
			CO2:         basic.CO2,
			Temperature: basic.Temperature,
			Pressure:    basic.Pressure,
			Humidity:    basic.Humidity,
			Battery:     basic.Battery,
			Status:      basic.Status,
		}
	default:
		if err := unpack(buf, &raw); err != nil {
			return CurrentReading{}, err
		}
	}

	r := NewCurrentReading(ModelCO2Monitor)
	r.CO2 = c.Decode(ParamCO2, uint64(raw.CO2))
	r.Temperature = c.Decode(ParamTemperature, uint64(raw.Temperature))
	r.Pressure = c.Decode(ParamPressure, uint64(raw.Pressure))
	r.Humidity = c.Decode(ParamHumidity, uint64(raw.Humidity))
	r.Battery = int(raw.Battery)
	r.Status = Status(raw.Status)
	if len(buf) > binary.Size(rawCO2Reading{}) {
		r.Interval = int(raw.Interval)
		r.Ago = int(raw.Ago)
	}
	return r, nil
}

func (c Codec) decodeDualReading(buf []byte) (CurrentReading, error) {
	var raw rawDualReading
	if err := unpack(buf, &raw); err != nil {
		return CurrentReading{}, err
	}
	if err := checkModel(ModelDualSensor, raw.Model); err != nil {
		return CurrentReading{}, err
	}

	r := NewCurrentReading(ModelDualSensor)
	r.Interval = int(raw.Interval)
	r.Ago = int(raw.Ago)
	r.Battery = int(raw.Battery)
	r.Temperature = c.Decode(ParamTemperature, uint64(raw.Temperature))
	r.Humidity = c.Decode(ParamHumidity2, uint64(raw.Humidity))
	r.StatusHumidity, r.StatusTemperature = thresholdStatuses(raw.Status)
	return r, nil
}

func (c Codec) decodeRadiationReading(buf []byte) (CurrentReading, error) {
	var raw rawRadiationReading
	if err := unpack(buf, &raw); err != nil {
		return CurrentReading{}, err
	}
	if err := checkModel(ModelRadiationDosimeter, raw.Model); err != nil {
		return CurrentReading{}, err
	}

	r := NewCurrentReading(ModelRadiationDosimeter)
	r.Interval = int(raw.Interval)
	r.Ago = int(raw.Ago)
	r.Battery = int(raw.Battery)
	if raw.Rate&(1<<31) == 0 {
		r.RadiationRate = float64(raw.Rate)
	}
	r.RadiationTotal = c.Decode(ParamRadiationDoseIntegral, raw.Total)
	r.RadiationDuration = int(raw.Duration)
	r.Status = Status(raw.Status)
	return r, nil
}

func (c Codec) decodeRadonReading(buf []byte) (CurrentReading, error) {
	var raw rawRadonReading
	if err := unpack(buf, &raw); err != nil {
		return CurrentReading{}, err
	}
	if err := checkModel(ModelRadonDetector, raw.Model); err != nil {
		return CurrentReading{}, err
	}

	r := NewCurrentReading(ModelRadonDetector)
	r.Interval = int(raw.Interval)
	r.Ago = int(raw.Ago)
	r.Battery = int(raw.Battery)
	r.Temperature = c.Decode(ParamTemperature, uint64(raw.Temperature))
	r.Pressure = c.Decode(ParamPressure, uint64(raw.Pressure))
	r.Humidity = c.Decode(ParamHumidity2, uint64(raw.Humidity))
	r.RadonConcentration = c.Decode(ParamRadonConcentration, uint64(raw.Radon))
	r.Status = Status(raw.Status)
	r.RadonAverage24h = DecodeRadonAverage(raw.Averages[0].Time, raw.Averages[0].Value)
	r.RadonAverage7d = DecodeRadonAverage(raw.Averages[1].Time, raw.Averages[1].Value)
	r.RadonAverage30d = DecodeRadonAverage(raw.Averages[2].Time, raw.Averages[2].Value)
	return r, nil
}

// thresholdStatuses splits the dual sensor status byte: bits 0-1 humidity,
// bits 2-3 temperature.
func thresholdStatuses(b uint8) (humidity, temperature ThresholdStatus) {
	return ThresholdStatus(b & 0x03), ThresholdStatus((b >> 2) & 0x03)
}

func checkModel(want DeviceModel, got uint16) error {
	if got != uint16(want) {
		return malformed("reading carries model %d, expected %s", got, want)
	}
	return nil
}

// unpack reads buf into the fixed-size struct v; the length must match exactly.
func unpack(buf []byte, v interface{}) error {
	if size := binary.Size(v); size != len(buf) {
		return malformed("got %d bytes, layout %T needs %d", len(buf), v, size)
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}
