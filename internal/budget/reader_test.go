package budget

import (
	"testing"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWithinBudget(t *testing.T) {
	src := BytesSource{Data: []byte("hello world")}
	r := New(src, 100, 1, 0, 0)

	buf, tErr := r.Read("test", 0, 5)
	require.Nil(t, tErr)
	assert.Equal(t, "hello", string(buf))
	assert.Equal(t, int64(5), r.Budget().BytesRead)
}

func TestReadClippedByByteBudget(t *testing.T) {
	src := BytesSource{Data: []byte("hello world")}
	r := New(src, 5, 1, 0, 0)

	buf, tErr := r.Read("test", 0, 10)
	require.NotNil(t, tErr)
	assert.Equal(t, tregoerr.BudgetExceeded, tErr.Kind)
	assert.Equal(t, "hello", string(buf))
	assert.True(t, r.Budget().HitByteLimit)
}

func TestReadExhaustedBudgetReturnsImmediately(t *testing.T) {
	src := BytesSource{Data: []byte("hello world")}
	r := New(src, 5, 1, 0, 0)
	_, _ = r.Read("test", 0, 5)

	buf, tErr := r.Read("test", 5, 5)
	require.NotNil(t, tErr)
	assert.Equal(t, tregoerr.BudgetExceeded, tErr.Kind)
	assert.Nil(t, buf)
}

func TestReadPastEOFIsShortReadNotFatal(t *testing.T) {
	src := BytesSource{Data: []byte("hi")}
	r := New(src, 100, 1, 0, 0)

	buf, tErr := r.Read("test", 0, 10)
	require.NotNil(t, tErr)
	assert.Equal(t, tregoerr.ShortRead, tErr.Kind)
	assert.False(t, tErr.Fatal())
	assert.Equal(t, "hi", string(buf))
}

func TestPrefixCachedAcrossCalls(t *testing.T) {
	src := BytesSource{Data: []byte("the quick brown fox")}
	r := New(src, 1000, 1, 0, 8)

	p1, tErr := r.Prefix("sniff", 4)
	require.Nil(t, tErr)
	assert.Equal(t, "the ", string(p1))

	firstBytesRead := r.Budget().BytesRead

	p2, tErr := r.Prefix("entropy", 8)
	require.Nil(t, tErr)
	assert.Equal(t, "the quic", string(p2))
	assert.Equal(t, firstBytesRead, r.Budget().BytesRead, "second prefix call must not re-read the source")
}

func TestEnterRecursionRespectsMaxDepth(t *testing.T) {
	src := BytesSource{Data: []byte("x")}
	r := New(src, 100, 1, 0, 0)

	assert.True(t, r.EnterRecursion())
	assert.False(t, r.EnterRecursion())
}

func TestChildLimitIsMinOfRemainingAndCap(t *testing.T) {
	src := BytesSource{Data: []byte("0123456789")}
	r := New(src, 6, 1, 0, 0)
	_, _ = r.Read("x", 0, 4)

	assert.Equal(t, int64(2), r.ChildLimit(100))
	assert.Equal(t, int64(1), r.ChildLimit(1))
}

func TestFingerprintStableAfterPrefixLoad(t *testing.T) {
	src := BytesSource{Data: []byte("abcdef")}
	r := New(src, 100, 1, 0, 0)
	assert.Equal(t, uint64(0), r.Fingerprint())

	_, _ = r.Prefix("x", 6)
	fp1 := r.Fingerprint()
	fp2 := r.Fingerprint()
	assert.Equal(t, fp1, fp2)
	assert.NotZero(t, fp1)
}
