package workflow

import (
	"math"
	"strconv"
	"strings"
)

var vulgarFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'⅕': 0.2, '⅖': 0.4, '⅗': 0.6, '⅘': 0.8,
	'⅙': 1.0 / 6, '⅚': 5.0 / 6,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

// NumericAmount 數值化的份量。支援整數、小數、分數、帶分數（"1 1/2"、"1½"）與範圍（取下限）。
// 無法解析（例如 "to taste"）時回傳 0, false。
func (i ParsedIngredient) NumericAmount() (float64, bool) {
	return ParseAmount(i.Amount)
}

// ParseAmount 參見 NumericAmount
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// 範圍只取下限，例如 "2-3"、"2 to 3"
	if lo, _, ok := strings.Cut(s, "-"); ok && lo != "" {
		s = strings.TrimSpace(lo)
	}
	if lo, _, ok := strings.Cut(s, " to "); ok {
		s = strings.TrimSpace(lo)
	}

	total := 0.0
	parsed := false
	for _, part := range strings.Fields(s) {
		v, ok := parseAmountToken(part)
		if !ok {
			if parsed {
				break
			}
			return 0, false
		}
		total += v
		parsed = true
	}
	return total, parsed
}

func parseAmountToken(tok string) (float64, bool) {
	total := 0.0
	var digits strings.Builder
	hasFraction := false
	for _, r := range tok {
		if v, ok := vulgarFractions[r]; ok {
			total += v
			hasFraction = true
			continue
		}
		if hasFraction {
			return 0, false
		}
		digits.WriteRune(r)
	}

	rest := strings.ReplaceAll(digits.String(), ",", ".")
	if rest == "" {
		return total, hasFraction
	}
	if num, den, ok := strings.Cut(rest, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return total + n/d, true
	}
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return total + v, true
}
