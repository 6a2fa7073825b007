package main

import "time"

// lineClock drives the kernel. Every tick is one Kernel.Tick on the main
// goroutine.
type lineClock struct {
	ticker *time.Ticker
	ticks  <-chan time.Time
}

func newLineClock(period time.Duration) *lineClock {
	t := time.NewTicker(period)
	return &lineClock{ticker: t, ticks: t.C}
}

func (lc *lineClock) stop() {
	lc.ticker.Stop()
}
