package formatting

import (
	"fmt"
	"math"
)

// FormatClock renders a media length as m:ss, or h:mm:ss from one hour up.
// Fractions round to the nearest second; negative input renders as 0:00.
func FormatClock(seconds float64) string {
	total := int64(math.Round(max(seconds, 0)))
	h, m, s := total/3600, total/60%60, total%60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
