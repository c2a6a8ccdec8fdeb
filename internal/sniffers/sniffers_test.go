package sniffers

import (
	"testing"

	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
	"github.com/glaurung-re/glaurung/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffContentOnlyNoPath(t *testing.T) {
	prefix := []byte{0x7F, 'E', 'L', 'F', 0x02, 0x01, 0x01}
	hints, signals, tErr := Sniff(prefix, "")
	require.Nil(t, tErr)
	require.Len(t, hints, 1)
	assert.Equal(t, types.HintContentSniff, hints[0].Source)
	assert.NotEmpty(t, signals)
}

func TestSniffExtensionMatchesContentNoMismatch(t *testing.T) {
	prefix := []byte{'M', 'Z', 0x90, 0x00}
	hints, signals, tErr := Sniff(prefix, "payload.exe")
	require.Nil(t, tErr)
	require.Len(t, hints, 2)
	assert.Equal(t, types.HintExtension, hints[1].Source)
	for _, s := range signals {
		assert.NotEqual(t, "sniffer_ext_mismatch", s.Name)
	}
}

func TestSniffExtensionContentMismatchIsFlagged(t *testing.T) {
	prefix := []byte{0x7F, 'E', 'L', 'F', 0x02, 0x01, 0x01}
	hints, signals, tErr := Sniff(prefix, "picture.exe")
	require.NotNil(t, tErr)
	assert.Equal(t, tregoerr.SnifferMismatch, tErr.Kind)
	assert.False(t, tErr.Fatal())

	found := false
	for _, s := range signals {
		if s.Name == "sniffer_ext_mismatch" {
			found = true
			assert.Less(t, s.Score, 0.0)
		}
	}
	assert.True(t, found)
	require.Len(t, hints, 2)
}

func TestSniffUnknownExtensionNoMismatch(t *testing.T) {
	prefix := []byte{0x7F, 'E', 'L', 'F'}
	_, _, tErr := Sniff(prefix, "artifact.bin")
	assert.Nil(t, tErr)
}

func TestSniffEmptyPrefix(t *testing.T) {
	hints, signals, tErr := Sniff(nil, "")
	assert.Nil(t, tErr)
	assert.Nil(t, hints)
	assert.Nil(t, signals)
}

func TestExtensionLabelClassifiesFamilies(t *testing.T) {
	assert.Equal(t, "executable", extensionLabel("a.dll"))
	assert.Equal(t, "archive", extensionLabel("a.tar.gz"))
	assert.Equal(t, "script", extensionLabel("a.sh"))
	assert.Equal(t, "other", extensionLabel("a.txt"))
}
