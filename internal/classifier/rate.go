package classifier

import (
	"regexp"
	"strconv"
)

var ratePattern = regexp.MustCompile(`(\d{1,2}(?:\.\d{1,2})?)\s*%`)

// maxRateSamples bounds how many plausible rates are collected before giving up
// on the rest of the page.
const maxRateSamples = 11

// ExtractFDRate returns the highest plausible percentage figure in text.
// Values outside (0, 25) are ignored.
func ExtractFDRate(text string) (float64, bool) {
	var (
		best  float64
		found int
	)
	for _, m := range ratePattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 || v >= 25 {
			continue
		}
		if found == 0 || v > best {
			best = v
		}
		found++
		if found >= maxRateSamples {
			break
		}
	}
	return best, found > 0
}

// FormatRate renders a rate without trailing zeros.
func FormatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
