package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsForSizeTiers(t *testing.T) {
	w, d := paramsFor(1024)
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, d)

	w, d = paramsFor(500 * 1024)
	assert.Equal(t, 16, w)
	assert.Equal(t, 5, d)

	w, d = paramsFor(2 * 1024 * 1024)
	assert.Equal(t, 32, w)
	assert.Equal(t, 6, d)
}

func TestCTPHHeaderMatchesSizeTier(t *testing.T) {
	data := make([]byte, 1024)
	digest := CTPH(data)
	require.True(t, strings.HasPrefix(digest, "8:4:"))
}

func TestCTPHEmptyInput(t *testing.T) {
	digest := CTPH(nil)
	assert.Equal(t, "8:4", digest)
}

func TestCTPHIdenticalInputsProduceIdenticalDigests(t *testing.T) {
	data := make([]byte, 2000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	d1 := CTPH(data)
	d2 := CTPH(append([]byte(nil), data...))
	assert.Equal(t, d1, d2)
}

func TestSimilarIdenticalDigestsScoreOne(t *testing.T) {
	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte(i * 13)
	}
	d := CTPH(data)
	assert.Equal(t, float64(1), Similar(d, d))
}

func TestSimilarMismatchedHeadersIncomparable(t *testing.T) {
	small := CTPH(make([]byte, 100))
	large := CTPH(make([]byte, 2*1024*1024))
	assert.Equal(t, float64(0), Similar(small, large))
}

func TestSimilarCompletelyDifferentDataLowScore(t *testing.T) {
	a := make([]byte, 4000)
	b := make([]byte, 4000)
	for i := range a {
		a[i] = byte(i)
		b[i] = byte(255 - i)
	}
	score := Similar(CTPH(a), CTPH(b))
	assert.Less(t, score, float64(1))
}

func TestBuildPopulatesSimilarityInfo(t *testing.T) {
	info := Build([]byte("some sample artifact content for fuzzy hashing"), "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.NotEmpty(t, info.CTPH)
	assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", info.Imphash)
}
