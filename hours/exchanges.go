package hours

import (
	"fmt"
	"time"
	_ "time/tzdata" // exchange zones must resolve on hosts without a zoneinfo database
)

// Clock is a wall-clock time of day in an exchange's zone.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return Clock{t.Hour(), t.Minute()}, nil
}

// Break is a midday pause. Trading stops at Start and resumes at End.
type Break struct {
	Start Clock
	End   Clock
}

// Exchange is the regular schedule of one market. Holidays are not modelled.
type Exchange struct {
	MIC      string
	Location *time.Location
	Open     Clock
	Close    Clock
	Days     []time.Weekday
	Lunch    *Break
}

// trades reports whether the exchange has a session on day d.
func (e Exchange) trades(d time.Weekday) bool {
	for _, x := range e.Days {
		if x == d {
			return true
		}
	}
	return false
}

// OpenAt reports whether the exchange is in its regular session at t.
// The session includes both its opening and closing minute.
func (e Exchange) OpenAt(t time.Time) bool {
	local := t.In(e.Location)
	if !e.trades(local.Weekday()) {
		return false
	}
	now := local.Hour()*60 + local.Minute()
	if now < e.Open.minutes() || now > e.Close.minutes() {
		return false
	}
	if e.Lunch != nil && now >= e.Lunch.Start.minutes() && now < e.Lunch.End.minutes() {
		return false
	}
	return true
}

var (
	monFri = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	sunThu = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}
)

// mustLoadLocation loads a timezone location, panicking if it fails
func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("failed to load timezone: " + name + ": " + err.Error())
	}
	return loc
}

func hm(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func exchange(mic, tz, open, close string, days []time.Weekday) Exchange {
	return Exchange{MIC: mic, Location: mustLoadLocation(tz), Open: hm(open), Close: hm(close), Days: days}
}

func withLunch(e Exchange, start, end string) Exchange {
	e.Lunch = &Break{Start: hm(start), End: hm(end)}
	return e
}

// Default returns the built-in schedule table keyed by MIC.
func Default() map[string]Exchange {
	list := []Exchange{
		// North America
		exchange("XNYS", "America/New_York", "09:30", "16:00", monFri),
		exchange("XNAS", "America/New_York", "09:30", "16:00", monFri),
		exchange("XNGS", "America/New_York", "09:30", "16:00", monFri),
		exchange("XNMS", "America/New_York", "09:30", "16:00", monFri),
		exchange("XNCM", "America/New_York", "09:30", "16:00", monFri),
		exchange("ARCX", "America/New_York", "09:30", "16:00", monFri),
		exchange("BATS", "America/New_York", "09:30", "16:00", monFri),
		exchange("XASE", "America/New_York", "09:30", "16:00", monFri),
		exchange("IEXG", "America/New_York", "09:30", "16:00", monFri),
		exchange("XPHL", "America/New_York", "09:30", "16:00", monFri),
		exchange("OTCM", "America/New_York", "09:30", "16:00", monFri),
		exchange("XTSE", "America/Toronto", "09:30", "16:00", monFri),
		exchange("XTSX", "America/Toronto", "09:30", "16:00", monFri),
		exchange("XMEX", "America/Mexico_City", "08:30", "15:00", monFri),
		// South America
		exchange("BVMF", "America/Sao_Paulo", "10:00", "17:00", monFri),
		exchange("XLIM", "America/Lima", "09:00", "16:00", monFri),
		exchange("XSGO", "America/Santiago", "09:30", "16:00", monFri),
		// Europe
		exchange("XLON", "Europe/London", "08:00", "16:30", monFri),
		exchange("XFRA", "Europe/Berlin", "08:00", "23:00", monFri),
		exchange("XETR", "Europe/Berlin", "09:00", "17:30", monFri),
		exchange("XPAR", "Europe/Paris", "09:00", "17:30", monFri),
		exchange("XAMS", "Europe/Amsterdam", "09:00", "17:30", monFri),
		exchange("XBRU", "Europe/Brussels", "09:00", "17:30", monFri),
		exchange("XLIS", "Europe/Lisbon", "08:00", "16:30", monFri),
		exchange("XMIL", "Europe/Rome", "09:00", "17:30", monFri),
		exchange("MTAA", "Europe/Rome", "09:00", "17:30", monFri),
		exchange("XMAD", "Europe/Madrid", "09:00", "17:30", monFri),
		exchange("XSWX", "Europe/Zurich", "09:00", "17:30", monFri),
		exchange("XWBO", "Europe/Vienna", "09:05", "17:30", monFri),
		exchange("XSTO", "Europe/Stockholm", "09:00", "17:30", monFri),
		exchange("XCSE", "Europe/Copenhagen", "09:00", "17:00", monFri),
		exchange("XHEL", "Europe/Helsinki", "10:00", "18:30", monFri),
		exchange("XOSL", "Europe/Oslo", "09:00", "16:20", monFri),
		exchange("XWAR", "Europe/Warsaw", "09:00", "17:05", monFri),
		exchange("XIST", "Europe/Istanbul", "10:00", "18:00", monFri),
		exchange("XATH", "Europe/Athens", "10:00", "17:20", monFri),
		exchange("XBUD", "Europe/Budapest", "09:00", "17:05", monFri),
		exchange("XPRA", "Europe/Prague", "09:00", "17:00", monFri),
		// Asia-Pacific
		withLunch(exchange("XTKS", "Asia/Tokyo", "09:00", "15:00", monFri), "11:30", "12:30"),
		withLunch(exchange("XHKG", "Asia/Hong_Kong", "09:30", "16:00", monFri), "12:00", "13:00"),
		withLunch(exchange("XSES", "Asia/Singapore", "09:00", "17:00", monFri), "12:00", "13:00"),
		exchange("XASX", "Australia/Sydney", "10:00", "16:00", monFri),
		exchange("XKRX", "Asia/Seoul", "09:00", "15:30", monFri),
		exchange("XTAI", "Asia/Taipei", "09:00", "13:30", monFri),
		exchange("ROCO", "Asia/Taipei", "09:00", "13:30", monFri),
		withLunch(exchange("XSHG", "Asia/Shanghai", "09:30", "15:00", monFri), "11:30", "13:00"),
		withLunch(exchange("XSHE", "Asia/Shanghai", "09:30", "15:00", monFri), "11:30", "13:00"),
		exchange("XNSE", "Asia/Kolkata", "09:15", "15:30", monFri),
		exchange("XBOM", "Asia/Kolkata", "09:15", "15:30", monFri),
		exchange("XNZE", "Pacific/Auckland", "10:00", "16:45", monFri),
		// Middle East / Africa
		exchange("XTAE", "Asia/Jerusalem", "10:00", "17:25", sunThu),
		exchange("XJSE", "Africa/Johannesburg", "09:00", "17:00", monFri),
	}
	m := make(map[string]Exchange, len(list))
	for _, e := range list {
		m[e.MIC] = e
	}
	return m
}
