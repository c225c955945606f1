package compression_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "github.com/xkubpise/fatvol/utilities/compression"
)

func TestEncodeRLE8(t *testing.T) {
	tests := []struct {
		Name     string
		Input    []byte
		Expected []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"pair only", []byte{4, 4}, []byte{4, 4, 0}},
		{"no runs", []byte{0, 1, 2, 3, 4}, []byte{0, 1, 2, 3, 4}},
		{"pair at end", []byte{6, 1, 3, 0, 0}, []byte{6, 1, 3, 0, 0, 0}},
		{"three at end", []byte{6, 1, 0, 0, 0}, []byte{6, 1, 0, 0, 1}},
		{"short run", []byte{9, 5, 5, 5, 5, 5, 3, 7}, []byte{9, 5, 5, 3, 3, 7}},
		{
			"adjacent runs",
			[]byte{9, 5, 5, 5, 5, 5, 5, 3, 3, 3, 3, 7, 2, 6},
			[]byte{9, 5, 5, 4, 3, 3, 2, 7, 2, 6},
		},
		{
			"long run",
			bytes.Repeat([]byte{5}, 1024),
			[]byte{5, 5, 255, 5, 5, 255, 5, 5, 255, 5, 5, 251},
		},
		{"257", bytes.Repeat([]byte{8}, 257), []byte{8, 8, 255}},
		{"258", bytes.Repeat([]byte{8}, 258), []byte{8, 8, 255, 8}},
		{"259", bytes.Repeat([]byte{8}, 259), []byte{8, 8, 255, 8, 8, 0}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			var output bytes.Buffer
			n, err := c.EncodeRLE8(bytes.NewReader(test.Input), &output)
			require.NoError(t, err)
			assert.EqualValues(t, len(test.Expected), n, "wrong byte count")
			assert.True(
				t,
				bytes.Equal(test.Expected, output.Bytes()),
				"expected %v, got %v",
				test.Expected,
				output.Bytes())
		})
	}
}

func roundTripRLE8(t *testing.T, original []byte) {
	var encoded bytes.Buffer
	_, err := c.EncodeRLE8(bytes.NewReader(original), &encoded)
	require.NoError(t, err)

	decoded := make([]byte, len(original))
	n, err := c.DecodeRLE8(&encoded, bytewriter.New(decoded))
	require.NoError(t, err)
	assert.EqualValues(t, len(original), n)
	assert.Equal(t, original, decoded)
}

func TestRLE8RoundTrip(t *testing.T) {
	random := make([]byte, 1852)
	_, err := rand.Read(random)
	require.NoError(t, err)

	t.Run("random", func(t *testing.T) { roundTripRLE8(t, random) })
	t.Run("nulls", func(t *testing.T) { roundTripRLE8(t, make([]byte, 571)) })
	t.Run("long run", func(t *testing.T) {
		roundTripRLE8(t, bytes.Repeat([]byte{182}, 934))
	})
	t.Run("empty", func(t *testing.T) { roundTripRLE8(t, []byte{}) })
}

func TestDecodeRLE8MissingRepeatCount(t *testing.T) {
	var output bytes.Buffer
	_, err := c.DecodeRLE8(bytes.NewReader([]byte{1, 2, 3, 3}), &output)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
