package aranet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type CalibrationState uint8

const (
	CalibrationNotActive  CalibrationState = 0
	CalibrationEndRequest CalibrationState = 1
	CalibrationInProgress CalibrationState = 2
	CalibrationError      CalibrationState = 3
)

func (s CalibrationState) String() string {
	switch s {
	case CalibrationNotActive:
		return "NOT_ACTIVE"
	case CalibrationEndRequest:
		return "END_REQUEST"
	case CalibrationInProgress:
		return "IN_PROGRESS"
	case CalibrationError:
		return "ERROR"
	}
	return fmt.Sprintf("CALIBRATION(%d)", uint8(s))
}

func (s CalibrationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Version is a firmware version.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ManufacturerData is the device status block every advertisement carries.
type ManufacturerData struct {
	Disconnected     bool             `json:"disconnected"`
	CalibrationState CalibrationState `json:"calibration_state"`
	DFUActive        bool             `json:"dfu_active"`
	// Integrations is set when the device embeds live readings in its
	// advertisements.
	Integrations bool    `json:"integrations"`
	Version      Version `json:"version"`
}

// Advertisement is one decoded advertisement as delivered by a Scanner.
type Advertisement struct {
	Address          string            `json:"address"`
	Name             string            `json:"name"`
	RSSI             int               `json:"rssi"`
	ServiceUUIDs     []string          `json:"service_uuids,omitempty"`
	ManufacturerData *ManufacturerData `json:"manufacturer_data,omitempty"`
	Readings         *CurrentReading   `json:"readings,omitempty"`
	SeenAt           time.Time         `json:"seen_at"`
}

// NewAdvertisement decodes payload (manufacturer data without the company id).
func NewAdvertisement(address, name string, rssi int, services []string, payload []byte) Advertisement {
	md, readings := DecodeAdvertisement(name, payload)
	if readings != nil {
		readings.Name = name
	}
	return Advertisement{
		Address:          address,
		Name:             name,
		RSSI:             rssi,
		ServiceUUIDs:     services,
		ManufacturerData: md,
		Readings:         readings,
		SeenAt:           time.Now(),
	}
}

// SplitManufacturerData separates the little endian company id from a raw
// manufacturer specific data field.
func SplitManufacturerData(raw []byte) (companyID uint16, payload []byte, ok bool) {
	if len(raw) < 2 {
		return 0, nil, false
	}
	return binary.LittleEndian.Uint16(raw[:2]), raw[2:], true
}

const (
	minManufacturerDataLen = 5
	advHeaderLen           = 6
)

type advHeader struct {
	Model uint8
	Flags uint8
	Patch uint8
	Minor uint8
	Major uint16
}

type advCO2Reading struct {
	_           [3]byte
	CO2         uint16
	Temperature uint16
	Pressure    uint16
	Humidity    uint8
	Battery     uint8
	Status      uint8
	Interval    uint16
	Ago         uint16
	Counter     uint8
}

type advDualReading struct {
	_           [4]byte
	Temperature uint16
	_           [2]byte
	Humidity    uint16
	_           uint8
	Battery     uint8
	Status      uint8
	Interval    uint16
	Ago         uint16
	Counter     uint8
}

type advRadiationReading struct {
	Total    uint32
	Duration uint32
	Rate     uint16
	_        uint8
	Battery  uint8
	Status   uint8
	Interval uint16
	Ago      uint16
	Counter  uint8
}

type advRadonReading struct {
	_           [2]byte
	Radon       uint16
	Temperature uint16
	Pressure    uint16
	Humidity    uint16
	_           uint8
	Battery     uint8
	Status      uint8
	Interval    uint16
	Ago         uint16
	Counter     uint8
}

// DecodeAdvertisement decodes an Aranet manufacturer data payload. The
// manufacturer data block is nil when the payload is too short to carry it;
// readings are nil unless the device broadcasts them and the body matches
// the layout of its model.
func DecodeAdvertisement(name string, payload []byte) (*ManufacturerData, *CurrentReading) {
	return DefaultCodec.DecodeAdvertisement(name, payload)
}

func (c Codec) DecodeAdvertisement(name string, payload []byte) (*ManufacturerData, *CurrentReading) {
	if len(payload) < minManufacturerDataLen {
		return nil, nil
	}

	data := payload
	if isLegacyCO2Monitor(name, len(payload)) {
		data = append([]byte{byte(ModelCO2Monitor)}, payload...)
	}
	if len(data) < advHeaderLen {
		return nil, nil
	}

	var hdr advHeader
	_ = binary.Read(bytes.NewReader(data[:advHeaderLen]), binary.LittleEndian, &hdr)
	md := &ManufacturerData{
		Disconnected:     hdr.Flags&0x01 != 0,
		CalibrationState: CalibrationState((hdr.Flags >> 2) & 0x03),
		DFUActive:        hdr.Flags&0x10 != 0,
		Integrations:     hdr.Flags&0x20 != 0,
		Version:          Version{Major: int(hdr.Major), Minor: int(hdr.Minor), Patch: int(hdr.Patch)},
	}
	if !md.Integrations {
		return md, nil
	}

	model := modelFromByte(hdr.Model)
	if model == ModelUnknown {
		log.Debugf("advertisement from unknown model %d", hdr.Model)
		return md, nil
	}
	if guess := ModelFromName(name); guess != ModelUnknown && guess != model {
		log.Debugf("advertised name %q suggests %s, payload says %s", name, guess, model)
	}

	readings, err := c.decodeAdvertisedReading(model, data[advHeaderLen:])
	if err != nil {
		// a frame that does not fit the layout carries no live values
		log.Debugf("ignoring advertised readings: %s", err)
		md.Integrations = false
		return md, nil
	}
	return md, &readings
}

// isLegacyCO2Monitor reports whether the payload lacks the model byte, which
// older CO2 monitor firmware omits.
func isLegacyCO2Monitor(name string, n int) bool {
	if n == 7 || n == 22 {
		return true
	}
	return strings.HasPrefix(name, "Aranet4") && n != 8 && n != 23
}

func (c Codec) decodeAdvertisedReading(model DeviceModel, body []byte) (CurrentReading, error) {
	r := NewCurrentReading(model)
	switch model {
	case ModelCO2Monitor:
		var raw advCO2Reading
		if err := unpack(body, &raw); err != nil {
			return CurrentReading{}, err
		}
		r.CO2 = c.Decode(ParamCO2, uint64(raw.CO2))
		r.Temperature = c.Decode(ParamTemperature, uint64(raw.Temperature))
		r.Pressure = c.Decode(ParamPressure, uint64(raw.Pressure))
		r.Humidity = c.Decode(ParamHumidity, uint64(raw.Humidity))
		r.Battery = int(raw.Battery)
		r.Status = Status(raw.Status)
		r.Interval, r.Ago, r.Counter = int(raw.Interval), int(raw.Ago), int(raw.Counter)
	case ModelDualSensor:
		var raw advDualReading
		if err := unpack(body, &raw); err != nil {
			return CurrentReading{}, err
		}
		r.Temperature = c.Decode(ParamTemperature, uint64(raw.Temperature))
		r.Humidity = c.Decode(ParamHumidity2, uint64(raw.Humidity))
		r.Battery = int(raw.Battery)
		r.StatusHumidity, r.StatusTemperature = thresholdStatuses(raw.Status)
		r.Interval, r.Ago, r.Counter = int(raw.Interval), int(raw.Ago), int(raw.Counter)
	case ModelRadiationDosimeter:
		var raw advRadiationReading
		if err := unpack(body, &raw); err != nil {
			return CurrentReading{}, err
		}
		r.RadiationTotal = float64(raw.Total)
		r.RadiationDuration = int(raw.Duration)
		if raw.Rate&0x8000 == 0 {
			r.RadiationRate = float64(raw.Rate)
		}
		r.Battery = int(raw.Battery)
		r.Status = Status(raw.Status)
		r.Interval, r.Ago, r.Counter = int(raw.Interval), int(raw.Ago), int(raw.Counter)
	case ModelRadonDetector:
		var raw advRadonReading
		if err := unpack(body, &raw); err != nil {
			return CurrentReading{}, err
		}
		r.RadonConcentration = c.Decode(ParamRadonConcentration, uint64(raw.Radon))
		r.Temperature = c.Decode(ParamTemperature, uint64(raw.Temperature))
		r.Pressure = c.Decode(ParamPressure, uint64(raw.Pressure))
		r.Humidity = c.Decode(ParamHumidity2, uint64(raw.Humidity))
		r.Battery = int(raw.Battery)
		r.Status = Status(raw.Status)
		r.Interval, r.Ago, r.Counter = int(raw.Interval), int(raw.Ago), int(raw.Counter)
	default:
		return CurrentReading{}, malformed("no advertisement layout for %s", model)
	}
	return r, nil
}
