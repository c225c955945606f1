package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkubpise/fatvol"
	"github.com/xkubpise/fatvol/drivers/fat32"
)

func shortName(s string) fat32.ShortName {
	var name fat32.ShortName
	copy(name[:], s)
	return name
}

func TestEncodeShortName(t *testing.T) {
	tests := []struct {
		Input    string
		Expected string
	}{
		{"FOO.TXT", "FOO     TXT"},
		{"foo.txt", "FOO     TXT"},
		{"README", "README     "},
		{"ABCDEFGH.ABC", "ABCDEFGHABC"},
		{"A.B", "A       B  "},
		{"X.", "X          "},
	}

	for _, test := range tests {
		encoded, err := fat32.EncodeShortName(test.Input)
		require.NoError(t, err, test.Input)
		assert.Equal(t, test.Expected, string(encoded[:]), test.Input)
	}
}

func TestEncodeShortNameTooLong(t *testing.T) {
	_, err := fat32.EncodeShortName("ABCDEFGHI.TXT")
	assert.ErrorIs(t, err, fatvol.ErrNameTooLong)

	_, err = fat32.EncodeShortName("FOO.TEXT")
	assert.ErrorIs(t, err, fatvol.ErrNameTooLong)
}

func TestDecodeShortName(t *testing.T) {
	assert.Equal(t, "foo.txt", fat32.DecodeShortName(shortName("FOO     TXT")))
	assert.Equal(t, "readme", fat32.DecodeShortName(shortName("README     ")))
	assert.Equal(t, "abcdefgh.abc", fat32.DecodeShortName(shortName("ABCDEFGHABC")))
	assert.Equal(t, ".", fat32.DecodeShortName(shortName(".          ")))
	assert.Equal(t, "..", fat32.DecodeShortName(shortName("..         ")))
}

func TestShortNameRoundTrip(t *testing.T) {
	encoded, err := fat32.EncodeShortName("FOO.TXT")
	require.NoError(t, err)
	assert.Equal(t, "foo.txt", fat32.DecodeShortName(encoded))
	assert.Equal(t, "foo.txt", encoded.String())
}

func TestIsLegalShortChar(t *testing.T) {
	for _, ch := range []byte("AZ09!#$%&'()-@^_`{}~") {
		assert.True(t, fat32.IsLegalShortChar(ch, false, false), "%q", ch)
	}
	for _, ch := range []byte(" ./\\*?\"<>|+,;=[]a\x00\x7f") {
		assert.False(t, fat32.IsLegalShortChar(ch, false, false), "%q", ch)
	}

	assert.True(t, fat32.IsLegalShortChar('/', true, false))
	assert.True(t, fat32.IsLegalShortChar('.', true, false))
	assert.False(t, fat32.IsLegalShortChar('q', true, false))
	assert.True(t, fat32.IsLegalShortChar('q', false, true))
	assert.False(t, fat32.IsLegalShortChar('/', false, true))
}

func TestValidateShortName(t *testing.T) {
	tests := []struct {
		Name     string
		Kind     fatvol.ObjectKind
		Expected string
		Err      error
	}{
		{"readme.txt", fatvol.KindFile, "README.TXT", nil},
		{"a", fatvol.KindFile, "A", nil},
		{"notes.", fatvol.KindFile, "NOTES.", nil},
		{"ABCDEFGH.ABC", fatvol.KindFile, "ABCDEFGH.ABC", nil},
		{"subdir", fatvol.KindFolder, "SUBDIR", nil},
		{"~tmp$", fatvol.KindFolder, "~TMP$", nil},
		{"", fatvol.KindFile, "", fatvol.ErrInvalidArgument},
		{".txt", fatvol.KindFile, "", fatvol.ErrInvalidArgument},
		{"a.b.c", fatvol.KindFile, "", fatvol.ErrInvalidArgument},
		{"abcdefghi", fatvol.KindFile, "", fatvol.ErrNameTooLong},
		{"a.text", fatvol.KindFile, "", fatvol.ErrNameTooLong},
		{"a b", fatvol.KindFile, "", fatvol.ErrInvalidArgument},
		{"dir.x", fatvol.KindFolder, "", fatvol.ErrInvalidArgument},
		{"abcdefghi", fatvol.KindFolder, "", fatvol.ErrNameTooLong},
		{"caf\xc3\xa9", fatvol.KindFolder, "", fatvol.ErrInvalidArgument},
	}

	for _, test := range tests {
		result, err := fat32.ValidateShortName(test.Name, test.Kind)
		if test.Err != nil {
			assert.ErrorIs(t, err, test.Err, "%q as %s", test.Name, test.Kind)
			assert.Empty(t, result)
		} else {
			require.NoError(t, err, "%q as %s", test.Name, test.Kind)
			assert.Equal(t, test.Expected, result)
		}
	}
}
