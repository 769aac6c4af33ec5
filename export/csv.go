package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/alepar/aranet/aranet"
)

// CSVTimeFormat is the layout of the date column.
const CSVTimeFormat = time.RFC3339

// csvColumns is the column order; a column is written when the record's
// filter pulled its parameter.
var csvColumns = []struct {
	name   string
	params []aranet.Param
}{
	{"co2", []aranet.Param{aranet.ParamCO2}},
	{"temperature", []aranet.Param{aranet.ParamTemperature}},
	{"humidity", []aranet.Param{aranet.ParamHumidity, aranet.ParamHumidity2}},
	{"pressure", []aranet.Param{aranet.ParamPressure}},
	{"radiation_dose", []aranet.Param{aranet.ParamRadiationDose}},
	{"radiation_dose_rate", []aranet.Param{aranet.ParamRadiationDoseRate}},
	{"radiation_dose_integral", []aranet.Param{aranet.ParamRadiationDoseIntegral}},
	{"radon_concentration", []aranet.Param{aranet.ParamRadonConcentration}},
}

type csvColumn struct {
	name  string
	param aranet.Param
}

func selectColumns(filter aranet.Filter) []csvColumn {
	pulled := make(map[aranet.Param]bool)
	for _, p := range filter.Params() {
		pulled[p] = true
	}
	var cols []csvColumn
	for _, c := range csvColumns {
		for _, p := range c.params {
			if pulled[p] {
				cols = append(cols, csvColumn{name: c.name, param: p})
				break
			}
		}
	}
	return cols
}

// WriteCSV writes the history values of rec, one row per log entry. Absent
// values are left empty.
func WriteCSV(w io.Writer, rec aranet.Record) error {
	cols := selectColumns(rec.Filter)

	cw := csv.NewWriter(w)
	header := []string{"date"}
	for _, c := range cols {
		header = append(header, c.name)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}

	row := make([]string, len(header))
	for _, item := range rec.Values {
		row[0] = item.Date.Format(CSVTimeFormat)
		for i, c := range cols {
			row[i+1] = formatValue(item.Value(c.param))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "failed to write csv row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

func formatValue(v float64) string {
	if aranet.IsAbsent(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
