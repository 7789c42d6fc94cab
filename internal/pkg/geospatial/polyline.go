package geospatial

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// EncodePolyline encodes [lat, lng] pairs with the Google polyline algorithm.
func EncodePolyline(coords [][2]float64) string {
	in := make([][]float64, len(coords))
	for i, c := range coords {
		in[i] = []float64{c[0], c[1]}
	}
	return string(polyline.EncodeCoords(in))
}

// DecodePolyline is the inverse of EncodePolyline.
func DecodePolyline(encoded string) ([][2]float64, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c[0], c[1]}
	}
	return out, nil
}
