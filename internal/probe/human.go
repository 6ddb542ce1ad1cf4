package probe

import (
	"fmt"
	"math"
)

// HumanDuration renders whole minutes and seconds, e.g. 125.0 -> "2 min 5 sec".
// Fractions of a second are dropped.
func HumanDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}

	total := int64(seconds)
	return fmt.Sprintf("%d min %d sec", total/60, total%60)
}
