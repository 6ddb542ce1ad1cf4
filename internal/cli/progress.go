package cli

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type stopFunc func()

func startSpinner(enabled bool, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

// segmentProgress tracks how far into the media the written segments reach. A nil
// *segmentProgress is a valid disabled indicator.
type segmentProgress struct {
	bar   *progressbar.ProgressBar
	total int64
}

func startSegmentProgress(enabled bool, durationSec float64) *segmentProgress {
	if !enabled {
		return nil
	}

	total := int64(math.Ceil(durationSec))
	if total <= 0 {
		total = -1
	}

	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription("Transcribing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	return &segmentProgress{bar: bar, total: total}
}

func (p *segmentProgress) update(segments int, positionSec float64) {
	if p == nil {
		return
	}

	p.bar.Describe(fmt.Sprintf("Transcribing (%d segments)", segments))
	if p.total < 0 {
		_ = p.bar.Add(1)
		return
	}

	position := int64(positionSec)
	if position > p.total {
		position = p.total
	}
	_ = p.bar.Set64(position)
}

func (p *segmentProgress) finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}
