package fat32

import (
	"fmt"
	"strings"

	"github.com/xkubpise/fatvol"
)

const (
	BaseNameLength  = 8
	ExtensionLength = 3
	ShortNameLength = BaseNameLength + ExtensionLength
)

// ShortName is the on-disk 8.3 form of a name: eight bytes of base name and
// three of extension, both padded with spaces.
type ShortName [ShortNameLength]byte

var (
	dotName    = ShortName{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
	dotDotName = ShortName{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
)

const shortNamePunctuation = "!#$%&'()-@^_`{}~"

// IsLegalShortChar returns true if `ch` may appear in a short name. With
// `allowPath`, `/` and `.` are also accepted; with `allowLower`, so are a-z.
func IsLegalShortChar(ch byte, allowPath, allowLower bool) bool {
	switch {
	case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case strings.IndexByte(shortNamePunctuation, ch) >= 0:
		return true
	case allowPath && (ch == '/' || ch == '.'):
		return true
	case allowLower && ch >= 'a' && ch <= 'z':
		return true
	}
	return false
}

// EncodeShortName converts "name.ext" into its padded, uppercase on-disk form.
// The name is split on the first dot. It fails if the base is longer than 8
// bytes or the extension longer than 3; character legality isn't checked
// here, see [ValidateShortName].
func EncodeShortName(name string) (ShortName, error) {
	base, extension, _ := strings.Cut(name, ".")
	if len(base) > BaseNameLength {
		return ShortName{}, fatvol.ErrNameTooLong.WithMessage(
			fmt.Sprintf("base name %q is longer than %d characters", base, BaseNameLength))
	}
	if len(extension) > ExtensionLength {
		return ShortName{}, fatvol.ErrNameTooLong.WithMessage(
			fmt.Sprintf(
				"extension %q is longer than %d characters", extension, ExtensionLength))
	}

	var encoded ShortName
	for i := range encoded {
		encoded[i] = ' '
	}
	copy(encoded[:BaseNameLength], strings.ToUpper(base))
	copy(encoded[BaseNameLength:], strings.ToUpper(extension))
	return encoded, nil
}

// DecodeShortName converts an on-disk name to its lowercase display form. The
// dot is only added when the extension isn't blank.
func DecodeShortName(raw ShortName) string {
	var builder strings.Builder
	for _, ch := range raw[:BaseNameLength] {
		if ch == ' ' {
			break
		}
		builder.WriteByte(ch)
	}

	if raw[BaseNameLength] != ' ' {
		builder.WriteByte('.')
		for _, ch := range raw[BaseNameLength:] {
			if ch == ' ' {
				break
			}
			builder.WriteByte(ch)
		}
	}
	return strings.ToLower(builder.String())
}

func (name ShortName) String() string {
	return DecodeShortName(name)
}

// ValidateShortName checks `name` against the 8.3 rules for `kind` and returns
// it uppercased.
//
// Files take at most one dot, a base of 1-8 characters and an extension of 0-3.
// Folders take no dot at all and 1-8 characters.
func ValidateShortName(name string, kind fatvol.ObjectKind) (string, error) {
	if name == "" {
		return "", fatvol.ErrInvalidArgument.WithMessage("name can't be empty")
	}

	base, extension, hasDot := strings.Cut(name, ".")
	if hasDot && kind == fatvol.KindFolder {
		return "", fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("folder name %q can't have an extension", name))
	}
	if base == "" {
		return "", fatvol.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%s name %q has an empty base name", kind, name))
	}
	if len(base) > BaseNameLength {
		return "", fatvol.ErrNameTooLong.WithMessage(
			fmt.Sprintf(
				"%s name %q is longer than %d characters", kind, base, BaseNameLength))
	}
	if len(extension) > ExtensionLength {
		return "", fatvol.ErrNameTooLong.WithMessage(
			fmt.Sprintf(
				"extension of %q is longer than %d characters", name, ExtensionLength))
	}

	for i := 0; i < len(name); i++ {
		if hasDot && i == len(base) {
			continue
		}
		ch := name[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if !IsLegalShortChar(ch, false, false) {
			return "", fatvol.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("illegal character %q in %s name %q", name[i], kind, name))
		}
	}
	// Everything is ASCII by now.
	return strings.ToUpper(name), nil
}
