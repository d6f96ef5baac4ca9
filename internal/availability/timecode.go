package availability

import "time"

// TimeCodeScale is the number of milliseconds per time code unit.
const TimeCodeScale int64 = 100_000

// Compress scales an instant to a compact integer for transport. Precision
// below TimeCodeScale milliseconds is dropped.
func Compress(t time.Time) int64 {
	return CompressMillis(t.UnixMilli())
}

// Decompress is the inverse of Compress for instants that are exact
// multiples of TimeCodeScale.
func Decompress(code int64) time.Time {
	return time.UnixMilli(DecompressMillis(code)).UTC()
}

// CompressMillis scales epoch milliseconds.
func CompressMillis(ms int64) int64 {
	return ms / TimeCodeScale
}

// DecompressMillis restores epoch milliseconds.
func DecompressMillis(code int64) int64 {
	return code * TimeCodeScale
}

// DecompressAll decodes a list of time codes.
func DecompressAll(codes []int64) []time.Time {
	result := make([]time.Time, 0, len(codes))
	for _, code := range codes {
		result = append(result, Decompress(code))
	}
	return result
}
