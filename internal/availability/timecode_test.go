package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeCodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		ms := rng.Int63n(4_000_000_000_000/TimeCodeScale) * TimeCodeScale
		assert.Equal(t, ms, DecompressMillis(CompressMillis(ms)))
	}
}

func TestTimeCodeWholeHours(t *testing.T) {
	instant := at(monday, 9)
	code := Compress(instant)

	assert.Equal(t, instant.UnixMilli()/100_000, code)
	assert.True(t, Decompress(code).Equal(instant))
	assert.Equal(t, time.UTC, Decompress(code).Location())
}
