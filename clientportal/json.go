package clientportal

import (
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// at evaluates a JSON path against a decoded document.
func at(path string, doc any) (any, bool) {
	v, err := jsonpath.Get(path, doc)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// text returns the path value as a string; numbers are formatted without exponent.
func text(path string, doc any) string {
	v, ok := at(path, doc)
	if !ok {
		return ""
	}
	return stringOf(v)
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// number returns the path value as a decimal. The gateway prefixes some
// values with a letter ("C" for a prior close, "H" for halted) and uses
// thousands separators.
func number(path string, doc any) (decimal.Decimal, bool) {
	v, ok := at(path, doc)
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimalOf(v)
}

func decimalOf(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), true
	case string:
		s := strings.TrimLeft(strings.TrimSpace(x), "CH")
		s = strings.ReplaceAll(s, ",", "")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// items returns the elements of a bare JSON list, or of the list held under key.
func items(doc any, key string) []any {
	switch x := doc.(type) {
	case []any:
		return x
	case map[string]any:
		if l, ok := x[key].([]any); ok {
			return l
		}
	}
	return nil
}
