package domain

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies a route request independent of travel mode.
// Two requests with the same start and the same active stops (same order, ids,
// addresses, positions and end flag) share a fingerprint.
func Fingerprint(start GeoPoint, stops []Stop) uint64 {
	d := xxhash.New()
	writeFloat(d, start.Lon)
	writeFloat(d, start.Lat)
	for _, s := range stops {
		if !s.Active() {
			continue
		}
		_, _ = d.WriteString(s.ID)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(s.Address)
		_, _ = d.WriteString("\x00")
		if s.Position != nil {
			writeFloat(d, s.Position.Lon)
			writeFloat(d, s.Position.Lat)
		}
		if s.IsEndPoint {
			_, _ = d.WriteString("end")
		}
		_, _ = d.WriteString("\x1e")
	}
	return d.Sum64()
}

func writeFloat(d *xxhash.Digest, f float64) {
	_, _ = d.WriteString(strconv.FormatUint(math.Float64bits(f), 16))
	_, _ = d.WriteString(",")
}
