package gps

import "fmt"

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Source     string  `json:"source"`      // "nmea" or "browser"
	Time       string  `json:"time"`        // e.g. "12:34:56"
	Date       string  `json:"date"`        // e.g. "06/12/25"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	Altitude   float64 `json:"alt_m"`       // from GGA, metres
	Satellites int64   `json:"satellites"`  // from GGA
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void), etc.
}

// Valid reports whether the receiver had a position fix.
func (f Fix) Valid() bool { return f.Validity == "A" }

// Coordinates returns latitude and longitude formatted to 6 decimal places.
func (f Fix) Coordinates() (lat, lon string) {
	return fmt.Sprintf("%.6f", f.Latitude), fmt.Sprintf("%.6f", f.Longitude)
}

// FromBrowser builds a fix from a browser geolocation position.
func FromBrowser(lat, lon float64) Fix {
	return Fix{Source: "browser", Latitude: lat, Longitude: lon, Validity: "A"}
}
