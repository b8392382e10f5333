package cmd

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mobsim/mobsim/sim/qsim"
)

// progressListener advances a bar over simulated seconds.
type progressListener struct {
	start float64
	bar   *progressbar.ProgressBar
}

func newProgressListener(start, end float64, w io.Writer) *progressListener {
	bar := progressbar.NewOptions64(int64(end-start),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("simulating"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	return &progressListener{start: start, bar: bar}
}

func (p *progressListener) NotifyAfterSimStep(_ *qsim.QSim, now float64) {
	_ = p.bar.Set64(int64(now - p.start))
}

func (p *progressListener) NotifyBeforeCleanup(*qsim.QSim) {
	_ = p.bar.Finish()
}

func progressModule(start, end float64, w io.Writer) qsim.Module {
	return qsim.ModuleFunc(func(b *qsim.Binder) {
		b.BindListener("Progress", func(*qsim.Context) (any, error) {
			return newProgressListener(start, end, w), nil
		})
	})
}
