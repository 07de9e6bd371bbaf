package testfixtures

import (
	"sync"
	"time"

	"github.com/golang-sql/civil"
)

var helsinki = mustLoadLocation("Europe/Helsinki")

// ReferenceTime is Thursday 2020-10-15 12:30 in Helsinki (09:30 UTC). Most
// fixtures describe the surrounding week.
func ReferenceTime() time.Time {
	return time.Date(2020, time.October, 15, 9, 30, 0, 0, time.UTC)
}

// Helsinki returns the default resource timezone.
func Helsinki() *time.Location {
	return helsinki
}

// Clock is a manually driven time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime for the zero value.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now, or time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today returns the clock's date in loc.
func (c *Clock) Today(loc *time.Location) civil.Date {
	return civil.DateOf(c.Now().In(loc))
}

// Set moves the clock to now.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TravelTo moves the clock to the wall time at on date in loc.
func (c *Clock) TravelTo(date civil.Date, at civil.Time, loc *time.Location) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = civil.DateTime{Date: date, Time: at}.In(loc)
	return c.now
}

// AdvanceDays moves the clock by whole calendar days, keeping wall time in
// the clock's current location across DST changes.
func (c *Clock) AdvanceDays(days int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
	return c.now
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
