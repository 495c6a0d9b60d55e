package gps

import (
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Decoder accumulates NMEA sentences into fixes. RMC sentences complete a
// fix; GGA sentences only enrich the next one with altitude and satellites.
type Decoder struct {
	current Fix
}

// Apply parses one line. ok is true when the line completed a fix.
// Lines that are not NMEA sentences are ignored without error.
func (d *Decoder) Apply(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)

	// NMEA sentences start with '$'
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("gps: parse %q: %w", line, err)
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)

		d.current.Source = "nmea"
		d.current.Time = m.Time.String()
		d.current.Date = m.Date.String()
		d.current.Latitude = m.Latitude
		d.current.Longitude = m.Longitude
		d.current.SpeedKnots = m.Speed
		d.current.CourseDeg = m.Course
		d.current.Validity = string(m.Validity)
		return d.current, true, nil

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)

		if m.FixQuality != nmea.Invalid {
			d.current.Altitude = m.Altitude
		}
		d.current.Satellites = m.NumSatellites
		return Fix{}, false, nil

	default:
		// ignore other sentence types (GSA, GSV, VTG, ...)
		return Fix{}, false, nil
	}
}
