package internal

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/ipa"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// DefaultBytes is equivalent to progressbar.DefaultBytes but with higher progressbar.OptionThrottle.
func DefaultBytes(maxBytes int64, description string, options ...progressbar.Option) *progressbar.ProgressBar {
	return progressbar.NewOptions64(maxBytes,
		append([]progressbar.Option{
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(1 * time.Second),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true)},
			options...)...)
}

// NewProgressReporter returns a progress bar reporter if stderr is a terminal.
//
// Otherwise, the returned reporter logs the overall progress with the given logger at most once every 5 seconds.
func NewProgressReporter(logger *log.Logger, total int64, description string) ipa.ProgressReporter {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return ipa.NewProgressBarReporter(DefaultBytes(total, description))
	}

	return newLogReporter(logger, total, &rate.Sometimes{Interval: 5 * time.Second})
}

// newLogReporter creates a reporter that logs the percentage of total bytes copied so far.
func newLogReporter(logger *log.Logger, total int64, sometimes *rate.Sometimes) ipa.ProgressReporter {
	var (
		totalWritten, entryWritten int64
		previousSrc                string
	)

	return func(src, dst string, written int64, done bool) {
		if previousSrc != src {
			entryWritten = 0
			previousSrc = src
		}

		totalWritten += written - entryWritten
		entryWritten = written

		sometimes.Do(func() {
			if total <= 0 {
				logger.Printf("copied %s so far", humanize.IBytes(uint64(totalWritten)))
				return
			}

			logger.Printf("copied %.2f%% of %s so far", float64(totalWritten)/float64(total)*100.0, humanize.IBytes(uint64(total)))
		})
	}
}
