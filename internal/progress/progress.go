package progress

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// Counter counts scanned lines and logs the running total at most once
// per interval. A nil *Counter is valid and does nothing.
type Counter struct {
	name     string
	n        int64
	throttle *rate.Sometimes
	logf     func(format string, args ...any)
}

// New creates a counter labelled name. An interval <= 0 disables logging.
func New(name string, interval time.Duration) *Counter {
	c := &Counter{name: name, logf: log.Printf}
	if interval > 0 {
		c.throttle = &rate.Sometimes{Interval: interval}
	}
	return c
}

// Add records one scanned line.
func (c *Counter) Add() {
	if c == nil {
		return
	}
	c.n++
	if c.throttle != nil {
		c.throttle.Do(c.report)
	}
}

// Count returns the number of lines seen so far.
func (c *Counter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.n
}

// Done logs the final total.
func (c *Counter) Done() {
	if c == nil {
		return
	}
	c.logf("%s: %s lines", c.name, humanize.Comma(c.n))
}

func (c *Counter) report() {
	c.logf("%s: scanned %s lines", c.name, humanize.Comma(c.n))
}
