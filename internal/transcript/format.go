package transcript

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// maxTimestampSeconds keeps the centisecond count well inside int64.
const maxTimestampSeconds = 1e12

// FormatTimestamp renders seconds as HH:MM:SS.ss. The value is rounded to centiseconds
// before it is split, so 59.999 becomes 00:01:00.00 rather than 00:00:60.00.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxTimestampSeconds {
		seconds = maxTimestampSeconds
	}

	centis := int64(math.Round(seconds * 100))
	hours := centis / 360000
	minutes := centis / 6000 % 60
	secs := centis % 6000

	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, minutes, secs/100, secs%100)
}

// OutputPath swaps the final extension of the media path for .txt.
func OutputPath(mediaPath string) string {
	dir, base := filepath.Split(mediaPath)
	ext := filepath.Ext(base)
	if ext == base {
		// dotfiles such as ".hidden" have no extension to replace
		ext = ""
	}
	return dir + strings.TrimSuffix(base, ext) + ".txt"
}

func formatLine(start, end float64, text string) string {
	return fmt.Sprintf("[%s - %s] %s\n", FormatTimestamp(start), FormatTimestamp(end), strings.TrimSpace(text))
}
