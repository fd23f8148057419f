package entities

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Common errors
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrStoreWrite           = errors.New("store write failed")
	ErrTemplateSubstitution = errors.New("template substitution failed")
	ErrPlotToolMissing      = errors.New("plotting tool not found")
	ErrPlotExecution        = errors.New("plot execution failed")
)

// DateFormat is the calendar date layout used in the store file and the
// gnuplot time axis.
const DateFormat = "2006-01-02"

// Measurement represents a single dated body-weight data point.
type Measurement struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
}

// NewMeasurement parses a date string and weight value into a Measurement.
func NewMeasurement(date string, weight float64) (Measurement, error) {
	d, err := time.Parse(DateFormat, date)
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	if weight <= 0 {
		return Measurement{}, fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidInput, weight)
	}
	return Measurement{Date: d, Weight: weight}, nil
}

// DateString returns the measurement date in store form.
func (m Measurement) DateString() string {
	return m.Date.Format(DateFormat)
}

// Line returns the store-file representation, one decimal place.
func (m Measurement) Line() string {
	return fmt.Sprintf("%s %.1f", m.DateString(), m.Weight)
}

// ParseMeasurementLine parses one store-file line. Lines must hold exactly
// two whitespace-separated columns: an ISO date and a numeric weight.
func ParseMeasurementLine(line string) (Measurement, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Measurement{}, fmt.Errorf("%w: expected 2 columns, got %d", ErrInvalidInput, len(fields))
	}
	d, err := time.Parse(DateFormat, fields[0])
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, fields[0])
	}
	w, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: bad weight %q", ErrInvalidInput, fields[1])
	}
	return Measurement{Date: d, Weight: w}, nil
}

// RangeSpec selects the y-axis bounds for a chart: either explicit
// start/end values or auto, where gnuplot infers bounds from the data.
type RangeSpec struct {
	Auto  bool
	Start float64
	End   float64
}

// AutoRange returns a RangeSpec that lets the plotting tool pick bounds.
func AutoRange() RangeSpec {
	return RangeSpec{Auto: true}
}

// ExplicitRange returns a RangeSpec with fixed bounds.
func ExplicitRange(start, end float64) RangeSpec {
	return RangeSpec{Start: start, End: end}
}

// Clause returns the gnuplot yrange clause for the spec: the empty string
// for auto bounds, otherwise "set yrange [start:end]".
func (r RangeSpec) Clause() string {
	if r.Auto {
		return ""
	}
	return fmt.Sprintf("set yrange [%s:%s]", formatBound(r.Start), formatBound(r.End))
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderParams carries everything substituted into the plot script template.
type RenderParams struct {
	DateStart  string
	DateEnd    string
	YRange     RangeSpec
	DataFile   string
	OutputFile string
}

// Validate checks that the params form a usable render request.
func (p RenderParams) Validate() error {
	start, err := time.Parse(DateFormat, p.DateStart)
	if err != nil {
		return fmt.Errorf("%w: bad start date %q", ErrInvalidInput, p.DateStart)
	}
	end, err := time.Parse(DateFormat, p.DateEnd)
	if err != nil {
		return fmt.Errorf("%w: bad end date %q", ErrInvalidInput, p.DateEnd)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: date range end before start", ErrInvalidInput)
	}
	if !p.YRange.Auto && p.YRange.End <= p.YRange.Start {
		return fmt.Errorf("%w: weight range end must exceed start", ErrInvalidInput)
	}
	if p.DataFile == "" {
		return fmt.Errorf("%w: missing data file path", ErrInvalidInput)
	}
	if p.OutputFile == "" {
		return fmt.Errorf("%w: missing output file path", ErrInvalidInput)
	}
	return nil
}
