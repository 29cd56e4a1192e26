// CLAUDE:SUMMARY Text normalization for rule matching: strip accents, transliterate leftovers, uppercase, trim.
package canon

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Stringify errors. Neither is fatal: canonicalizers route both to their
// missing-input sentinel, and batch callers report malformed values.
var (
	ErrMissingValue   = errors.New("missing value")
	ErrMalformedValue = errors.New("value has no scalar text form")
)

// newAccentStripper builds a fresh chain per call: chained transformers keep
// internal buffers and must not be shared between goroutines.
func newAccentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize upper-cases, strips diacritics and trims a raw field value
// (e.g. "  São Cristóvão " -> "SAO CRISTOVAO"). Missing values yield "".
func Normalize(v any) string {
	s, err := Stringify(v)
	if err != nil {
		return ""
	}
	return NormalizeText(s)
}

// NormalizeText is Normalize for values already known to be strings.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	result, _, err := transform.String(newAccentStripper(), s)
	if err != nil {
		result = s
	}
	// Runes without a canonical decomposition (ß, æ, ø, ª) survive the
	// accent strip and are transliterated here.
	if !isASCII(result) {
		result = unidecode.Unidecode(result)
	}
	return strings.TrimSpace(strings.ToUpper(result))
}

// IsMissing reports whether v counts as an absent field value: nil, NaN,
// or a string that is empty after trimming.
func IsMissing(v any) bool {
	s, err := Stringify(v)
	return err != nil || strings.TrimSpace(s) == ""
}

// Stringify renders a decoded JSON scalar as text. Missing values (nil,
// NaN) return ErrMissingValue; maps, slices and other non-scalar kinds
// return ErrMalformedValue.
func Stringify(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", ErrMissingValue
	case string:
		return x, nil
	case *string:
		if x == nil {
			return "", ErrMissingValue
		}
		return *x, nil
	case fmt.Stringer:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	default:
		return "", fmt.Errorf("%w: %T", ErrMalformedValue, v)
	}
}

// formatFloat prints f with the shortest digits that round-trip at bitSize,
// so float32(1.1) stays "1.1".
func formatFloat(f float64, bitSize int) (string, error) {
	if math.IsNaN(f) {
		return "", ErrMissingValue
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
