package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a decimal money string like "125.50" into minor units
// (cents). At most two decimal places are accepted and negative amounts are
// rejected; whether zero is allowed is up to request validation.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}

	whole, frac, _ := strings.Cut(s, ".")

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 || strings.HasPrefix(whole, "-") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	var cents int64
	if frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		if len(frac) == 1 {
			cents *= 10
		}
	}

	return units*100 + cents, nil
}

// FormatAmount renders minor units as a decimal money string, e.g. 12550
// becomes "125.50".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
