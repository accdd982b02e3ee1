package output

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

var suffixes = []struct {
	digits int
	div    float64
	suffix string
}{
	{13, 1e12, "t"},
	{10, 1e9, "b"},
	{7, 1e6, "m"},
	{4, 1e3, "k"},
}

// Abbreviate shortens a count by the number of digits in its integer part:
// 1234 -> "1k" (digits=0) or "1.2k" (digits=1). Values below 1000 keep no
// suffix.
func Abbreviate(value float64, digits int) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	n := len(strconv.FormatFloat(math.Floor(value), 'f', 0, 64))
	for _, s := range suffixes {
		if n >= s.digits {
			return sign + strconv.FormatFloat(value/s.div, 'f', digits, 64) + s.suffix
		}
	}
	return sign + strconv.FormatFloat(value, 'f', digits, 64)
}

// Int is Abbreviate for counters with no decimals.
func Int(v int64) string {
	return Abbreviate(float64(v), 0)
}

// Percentage renders a [0,1] fraction, e.g. 0.973 -> "97.3%".
func Percentage(p float64, digits int) string {
	return strconv.FormatFloat(p*100, 'f', digits, 64) + "%"
}

// Size renders a byte count in SI units. Negative values are interval
// shrinkage and keep their sign.
func Size(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.Bytes(uint64(-bytes))
	}
	return humanize.Bytes(uint64(bytes))
}

// Uptime renders a duration as "Xd Xh Xm". Negative durations count as zero.
func Uptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// Age is the uptime of something created at created.
func Age(created, now time.Time) string {
	return Uptime(now.Sub(created))
}

// Expires renders seconds left before a ttl runs out, counted from the last
// update. A zero ttl never expires.
func Expires(ttl int64, updated, now time.Time) string {
	if ttl == 0 {
		return "never"
	}
	left := float64(ttl) - now.Sub(updated).Seconds()
	return strconv.FormatInt(int64(math.Ceil(left)), 10)
}

// Ago renders how long ago t was, for "last update" labels.
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
