// Package format renders distances and durations for the route info panel.
package format

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

func (u Units) IsValid() bool {
	switch u {
	case UnitsMetric, UnitsImperial:
		return true
	}
	return false
}

const (
	metersPerMile = 1609.344
	feetPerMeter  = 3.28084
)

// Formatter is a locale-aware navigation.Formatter.
type Formatter struct {
	printer *message.Printer
	units   Units
}

func New(locale string, units Units) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}
	if !units.IsValid() {
		return nil, fmt.Errorf("invalid units %q", units)
	}
	return &Formatter{printer: message.NewPrinter(tag), units: units}, nil
}

func (f *Formatter) Distance(meters float64) string {
	meters = math.Max(meters, 0)
	if f.units == UnitsImperial {
		miles := meters / metersPerMile
		switch {
		case miles < 0.1:
			return f.printer.Sprintf("%d ft", int(math.Round(meters*feetPerMeter)))
		case miles < 10:
			return f.printer.Sprintf("%.1f mi", miles)
		default:
			return f.printer.Sprintf("%.0f mi", miles)
		}
	}

	switch {
	case meters < 1000:
		return f.printer.Sprintf("%d m", int(math.Round(meters)))
	case meters < 10000:
		return f.printer.Sprintf("%.1f km", meters/1000)
	default:
		return f.printer.Sprintf("%.0f km", meters/1000)
	}
}

// Duration rounds to whole minutes.
func (f *Formatter) Duration(d time.Duration) string {
	minutes := int(math.Round(math.Max(d.Minutes(), 0)))
	if minutes < 60 {
		return f.printer.Sprintf("%d min", minutes)
	}
	return f.printer.Sprintf("%d h %s min", minutes/60, fmt.Sprintf("%02d", minutes%60))
}
