package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xkubpise/fatvol/drivers/fat32"
)

func TestDirentSlotStates(t *testing.T) {
	tests := []struct {
		Name       string
		First      byte
		Attributes uint8
		Free       bool
		Deleted    bool
		EndOfDir   bool
		LongName   bool
	}{
		{"never used", 0x00, 0, true, false, true, false},
		{"deleted", 0xE5, fat32.AttrDirectory, true, true, false, false},
		{"live folder", 'A', fat32.AttrDirectory, false, false, false, false},
		{"long name", 'A', fat32.AttrLongName, false, false, false, true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			var dirent fat32.RawDirent
			dirent.Name[0] = test.First
			dirent.Attributes = test.Attributes

			assert.Equal(t, test.Free, dirent.IsFree())
			assert.Equal(t, test.Deleted, dirent.IsDeleted())
			assert.Equal(t, test.EndOfDir, dirent.IsEndOfDirectory())
			assert.Equal(t, test.LongName, dirent.IsLongName())
		})
	}
}
