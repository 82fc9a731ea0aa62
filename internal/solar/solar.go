// Package solar computes the sun's position for the storefront's day/night
// theme and shadow direction. It is decorative, stateless and fire-and-forget:
// nothing in the cart core depends on it.
package solar

import (
	"math"
	"time"
)

// Position of the sun: azimuth in degrees clockwise from north, elevation in
// degrees above the horizon.
type Position struct {
	Azimuth   float64
	Elevation float64
}

// At computes the solar position for a time and place using the NOAA
// low-accuracy approximation. Good to a fraction of a degree, which is
// plenty for casting a page shadow.
func At(t time.Time, lat, lon float64) Position {
	utc := t.UTC()
	doy := float64(utc.YearDay())
	h := float64(utc.Hour()) + float64(utc.Minute())/60

	g := 2 * math.Pi / 365 * (doy - 1 + (h-12)/24)
	decl := 0.006918 - 0.399912*math.Cos(g) + 0.070257*math.Sin(g)
	eot := 229.18 * (0.000075 + 0.001868*math.Cos(g) - 0.032077*math.Sin(g))

	_, offsetSec := t.Zone()
	tz := float64(offsetSec) / 3600
	minutes := float64(t.Hour()*60 + t.Minute())

	timeOffset := eot + 4*lon - 60*tz
	tst := math.Mod(minutes+timeOffset, 1440)
	ha := tst/4 - 180
	if ha < -180 {
		ha += 360
	}

	latr, har := toRad(lat), toRad(ha)
	sinElev := math.Sin(latr)*math.Sin(decl) + math.Cos(latr)*math.Cos(decl)*math.Cos(har)
	elev := math.Asin(sinElev)
	az := math.Atan2(math.Sin(har), math.Cos(har)*math.Sin(latr)-math.Tan(decl)*math.Cos(latr))

	return Position{
		Azimuth:   math.Mod(toDeg(az)+180, 360),
		Elevation: toDeg(elev),
	}
}

// Dark reports whether the page should switch to its night theme.
func (p Position) Dark() bool {
	return p.Elevation <= 0
}

// Shadow returns the x/y offset, in the same unit as distance, of a shadow
// cast opposite the sun's azimuth.
func Shadow(azimuth, distance float64) (x, y float64) {
	a := toRad(math.Mod(azimuth+180, 360))
	return math.Cos(a) * distance, math.Sin(a) * distance
}

var directions = [16]string{
	"north", "north-northeast", "northeast", "east-northeast",
	"east", "east-southeast", "southeast", "south-southeast",
	"south", "south-southwest", "southwest", "west-southwest",
	"west", "west-northwest", "northwest", "north-northwest",
}

// Direction maps an azimuth onto the sixteen-wind compass rose.
func Direction(azimuth float64) string {
	idx := int(math.Round(math.Mod(azimuth, 360)/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return directions[idx]
}

// GuessCoords estimates coordinates from the clock's UTC offset alone:
// fifteen degrees of longitude per hour, latitude pinned to 50°N. Crude, but
// the page only needs a plausible shadow, not a fix.
func GuessCoords(t time.Time) (lat, lon float64) {
	_, offsetSec := t.Zone()
	return 50, float64(offsetSec) / 3600 * 15
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
