package ledger

import "strings"

const (
	// MaxNameLen bounds store and product names.
	MaxNameLen = 32
	// MaxChannelLen bounds the telegram channel id metadata field.
	MaxChannelLen = 32
	// MaxDetailsLen bounds the free-text details metadata field.
	MaxDetailsLen = 128
)

// ValidateStoreName checks the length and character-set rules for store
// names: lowercase letters, digits and hyphens, with no leading, trailing or
// doubled hyphen. The name doubles as input to record addressing, so the
// rules are stricter than for product names.
func ValidateStoreName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	prevHyphen := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevHyphen = false
		case c == '-':
			if i == 0 || i == len(name)-1 || prevHyphen {
				return ErrInvalidName
			}
			prevHyphen = true
		default:
			return ErrInvalidName
		}
	}
	return nil
}

// ValidateProductName checks that a product name is non-empty after trimming
// and within the length bound.
func ValidateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}
