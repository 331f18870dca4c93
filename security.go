package rebalance

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// micRegex checks for the format: 4 uppercase alphanumeric characters.
var micRegex = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// ValidateMIC checks that mic looks like an ISO 10383 market identifier.
func ValidateMIC(mic string) error {
	if !micRegex.MatchString(mic) {
		return fmt.Errorf("invalid MIC %q: must be 4 uppercase alphanumeric characters", mic)
	}
	return nil
}

// terminalSuffix matches the market suffix data terminals append to tickers ("AAPL US Equity").
var terminalSuffix = regexp.MustCompile(`\s+[A-Z]{2}\s+(Equity|Index)$`)

// CleanTicker strips terminal suffixes and surrounding spaces.
func CleanTicker(t string) string {
	t = strings.TrimSpace(t)
	return strings.TrimSpace(terminalSuffix.ReplaceAllString(t, ""))
}

// optionRegex matches "SPY US 12/19/25 C600" with an optional trailing suffix.
var optionRegex = regexp.MustCompile(`^([A-Z][A-Z.]*)\s+[A-Z]{2}\s+(\d{2}/\d{2}/\d{2})\s+([CP])(\d+(?:\.\d+)?)(\s+\S+)?$`)

// OptionRight is call or put.
type OptionRight string

const (
	Call OptionRight = "C"
	Put  OptionRight = "P"
)

// OptionSpec identifies a listed option contract by its terms.
type OptionSpec struct {
	Underlying string
	Expiry     time.Time
	Right      OptionRight
	Strike     decimal.Decimal
}

func (o OptionSpec) String() string {
	return fmt.Sprintf("%s %s %s%s", o.Underlying, o.Expiry.Format("01/02/06"), o.Right, o.Strike)
}

// ParseOption parses an option ticker. It returns false when t is not one.
func ParseOption(t string) (OptionSpec, bool) {
	m := optionRegex.FindStringSubmatch(strings.TrimSpace(t))
	if m == nil {
		return OptionSpec{}, false
	}
	expiry, err := time.Parse("01/02/06", m[2])
	if err != nil {
		return OptionSpec{}, false
	}
	strike, err := decimal.NewFromString(m[4])
	if err != nil {
		return OptionSpec{}, false
	}
	return OptionSpec{
		Underlying: m[1],
		Expiry:     expiry,
		Right:      OptionRight(m[3]),
		Strike:     strike,
	}, true
}

// DefaultOptionMultiplier is the contract size of listed equity options.
var DefaultOptionMultiplier = decimal.NewFromInt(100)

// looksLikeOption reports names like "Calls on SPY" that describe an option line.
func looksLikeOption(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "calls on") || strings.Contains(n, "puts on")
}
