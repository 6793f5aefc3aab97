package geospatial

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// ChainLength returns the total haversine length in meters of the polyline
// lat/lon pairs. Inputs shorter than two points yield zero.
func ChainLength(lats, lons []float64) float64 {
	if len(lats) != len(lons) || len(lats) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(lats); i++ {
		total += Haversine(lats[i-1], lons[i-1], lats[i], lons[i])
	}
	return total
}

// WalkingMinutes converts a distance in meters to walking minutes at the
// given speed in km/h.
func WalkingMinutes(distanceM, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return distanceM / (speedKmh * 1000.0 / 60.0)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
