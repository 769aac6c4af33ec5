package aranet

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// OutOfRange marks a window that selects no log slots.
const OutOfRange = -1

// Toggle is a tri-state option: left Unset, the device model decides.
type Toggle int

const (
	Unset Toggle = iota
	Off
	On
)

func (t Toggle) String() string {
	switch t {
	case Off:
		return "off"
	case On:
		return "on"
	}
	return "unset"
}

// enabled resolves the toggle against the model default.
func (t Toggle) enabled(def bool) bool {
	switch t {
	case Off:
		return false
	case On:
		return true
	}
	return def
}

func ParseToggle(s string) (Toggle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset", "default":
		return Unset, nil
	case "on", "true", "yes", "1", "enable", "enabled":
		return On, nil
	case "off", "false", "no", "0", "disable", "disabled":
		return Off, nil
	}
	return Unset, errors.Wrapf(ErrInvalidSetting, "toggle %q", s)
}

// EntryFilter selects which part of the history log to fetch.
type EntryFilter struct {
	// Last limits the window to the newest entries; ignored when Start or End
	// is set.
	Last int
	// zero values are unset
	Start time.Time
	End   time.Time

	Temperature           Toggle
	Humidity              Toggle
	Pressure              Toggle
	CO2                   Toggle
	RadiationDose         Toggle
	RadiationDoseRate     Toggle
	RadiationDoseIntegral Toggle
	Radon                 Toggle

	// WaitForLog delays the pull when the next log entry is imminent.
	WaitForLog bool
}

// LogTimes reconstructs the timestamps of the total entries of a log written
// every interval seconds, the newest of which was written ago seconds before
// now.
func LogTimes(now time.Time, total, interval, ago int) []time.Time {
	if total <= 0 {
		return nil
	}
	first := now.Add(-time.Duration((total-1)*interval+ago) * time.Second)
	times := make([]time.Time, total)
	for i := range times {
		times[i] = first.Add(time.Duration(i*interval) * time.Second)
	}
	return times
}

// CalcStartEnd maps a filter onto 1-based inclusive log slots. Either both
// results are OutOfRange or begin <= end.
func CalcStartEnd(times []time.Time, f EntryFilter) (begin, end int) {
	total := len(times)
	if total == 0 {
		return OutOfRange, OutOfRange
	}
	begin, end = 1, total

	if f.Last > 0 && f.Start.IsZero() && f.End.IsZero() {
		begin = total - f.Last + 1
		if begin < 1 {
			begin = 1
		}
	}

	if !f.Start.IsZero() {
		begin = OutOfRange
		for i, ts := range times {
			if !ts.Before(f.Start) {
				begin = i + 1
				break
			}
		}
	}

	if !f.End.IsZero() {
		end = OutOfRange
		for i, ts := range times {
			if ts.After(f.End) {
				break
			}
			end = i + 1
		}
	}

	if begin == OutOfRange || end == OutOfRange || end < begin {
		return OutOfRange, OutOfRange
	}
	return begin, end
}

// HumidityMode selects which humidity parameter a pull requests.
type HumidityMode int

const (
	HumidityNone HumidityMode = iota
	// HumidityLegacy is the whole percent 1-byte parameter of the CO2 monitor.
	HumidityLegacy
	// HumidityPrecise is the tenth of a percent parameter of newer models.
	HumidityPrecise
)

// Filter is a resolved EntryFilter: a slot window plus the parameters to pull.
type Filter struct {
	Begin int `json:"begin"`
	End   int `json:"end"`

	Temperature           bool         `json:"temperature"`
	Humidity              HumidityMode `json:"humidity"`
	Pressure              bool         `json:"pressure"`
	CO2                   bool         `json:"co2"`
	RadiationDose         bool         `json:"radiation_dose"`
	RadiationDoseRate     bool         `json:"radiation_dose_rate"`
	RadiationDoseIntegral bool         `json:"radiation_dose_integral"`
	Radon                 bool         `json:"radon"`
}

// NewFilter resolves the parameter toggles of f against what model logs.
func NewFilter(model DeviceModel, f EntryFilter, begin, end int) Filter {
	logs := make(map[Param]bool)
	for _, p := range model.Params() {
		logs[p] = true
	}

	flt := Filter{
		Begin:                 begin,
		End:                   end,
		Temperature:           logs[ParamTemperature] && f.Temperature.enabled(true),
		Pressure:              logs[ParamPressure] && f.Pressure.enabled(true),
		CO2:                   logs[ParamCO2] && f.CO2.enabled(true),
		RadiationDose:         logs[ParamRadiationDose] && f.RadiationDose.enabled(true),
		RadiationDoseRate:     logs[ParamRadiationDoseRate] && f.RadiationDoseRate.enabled(true),
		RadiationDoseIntegral: logs[ParamRadiationDoseIntegral] && f.RadiationDoseIntegral.enabled(true),
		Radon:                 logs[ParamRadonConcentration] && f.Radon.enabled(true),
	}
	if f.Humidity.enabled(true) {
		switch {
		case logs[ParamHumidity2]:
			flt.Humidity = HumidityPrecise
		case logs[ParamHumidity]:
			flt.Humidity = HumidityLegacy
		}
	}
	return flt
}

// Params lists the parameters to pull, in pull order.
func (f Filter) Params() []Param {
	var params []Param
	if f.Temperature {
		params = append(params, ParamTemperature)
	}
	switch f.Humidity {
	case HumidityLegacy:
		params = append(params, ParamHumidity)
	case HumidityPrecise:
		params = append(params, ParamHumidity2)
	}
	if f.Pressure {
		params = append(params, ParamPressure)
	}
	if f.CO2 {
		params = append(params, ParamCO2)
	}
	if f.RadiationDose {
		params = append(params, ParamRadiationDose)
	}
	if f.RadiationDoseRate {
		params = append(params, ParamRadiationDoseRate)
	}
	if f.RadiationDoseIntegral {
		params = append(params, ParamRadiationDoseIntegral)
	}
	if f.Radon {
		params = append(params, ParamRadonConcentration)
	}
	return params
}

// Empty reports whether the window selects no slots.
func (f Filter) Empty() bool {
	return f.Begin == OutOfRange || f.End == OutOfRange
}
