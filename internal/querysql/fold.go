package querysql

import (
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldFunc is the name of the SQL function the store registers for
// case-insensitive search. SQLite's own LOWER only folds ASCII.
const FoldFunc = "crudkit_fold"

// Fold returns the Unicode case-folded, NFC-normalized form of s.
// Both search terms and column values go through Fold, so matching is
// case-insensitive beyond ASCII.
func Fold(s string) string {
	// cases.Caser is stateful; one per call keeps Fold safe for concurrent use
	return cases.Fold().String(norm.NFC.String(s))
}

// FoldValue is the implementation of the FoldFunc SQL function.
// Non-text column values are folded through their text form; NULL folds
// to the empty string.
func FoldValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return Fold(val)
	case []byte:
		return Fold(string(val))
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
