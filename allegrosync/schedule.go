package allegrosync

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NextFireTime computes when the integration should sync again after the given
// run. SyncFrequency accepts a Go duration ("90m"), a bare minute count ("45")
// or a standard five-field cron expression. Unparseable values fall back to
// the default frequency.
func NextFireTime(frequency string, after time.Time) time.Time {
	frequency = strings.TrimSpace(frequency)
	if frequency == "" {
		frequency = DefaultSettings().SyncFrequency
	}

	if d, err := time.ParseDuration(frequency); err == nil && d > 0 {
		return after.Add(d)
	}
	if minutes, err := strconv.Atoi(frequency); err == nil && minutes > 0 {
		return after.Add(time.Duration(minutes) * time.Minute)
	}
	if schedule, err := cron.ParseStandard(frequency); err == nil {
		return schedule.Next(after)
	}

	d, _ := time.ParseDuration(DefaultSettings().SyncFrequency)
	return after.Add(d)
}
