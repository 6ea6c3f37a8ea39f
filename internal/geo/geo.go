package geo

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	EarthRadiusM = 6371000.0 // Mean earth radius (m)
	FeetToMeters = 0.3048
	MetersToFeet = 3.28084
	NMToMetersF  = 1852.0
)

// Haversine returns the great-circle distance in meters between two points
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// MetersToNM converts meters to nautical miles
func MetersToNM(meters float64) float64 {
	return meters / NMToMetersF
}

// NMToMeters converts nautical miles to meters
func NMToMeters(nm float64) float64 {
	return nm * NMToMetersF
}

// Window is a rectangular geographic region bounded by latitudes and longitudes
type Window struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the given point lies within the window
func (w Window) Contains(lat, lon float64) bool {
	return lat >= w.MinLat && lat <= w.MaxLat && lon >= w.MinLon && lon <= w.MaxLon
}

// VicinityWindow returns a window of the given radius in nautical miles
// centered on a point. Longitude extent widens with latitude.
func VicinityWindow(lat, lon, radiusNM float64) Window {
	latDeg := radiusNM / 60.0
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDeg := radiusNM / (60.0 * cosLat)

	return Window{
		MinLat: lat - latDeg,
		MaxLat: lat + latDeg,
		MinLon: lon - lonDeg,
		MaxLon: lon + lonDeg,
	}
}

// MagneticVariation returns the magnetic declination in degrees (+East, -West)
// for a position and time, from the World Magnetic Model.
func MagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, altFt*FeetToMeters)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D()
}

// MagneticHeading converts a true heading to magnetic at the given position
func MagneticHeading(trueHeading, lat, lon, altFt float64, date time.Time) float64 {
	heading := trueHeading - MagneticVariation(lat, lon, altFt, date)
	if heading < 0 {
		heading += 360
	}
	if heading >= 360 {
		heading -= 360
	}
	return heading
}
