package allegrosync

import (
	"testing"
	"time"
)

func TestNextFireTime(t *testing.T) {
	after := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)

	tests := []struct {
		name      string
		frequency string
		want      time.Time
	}{
		{"duration", "90m", after.Add(90 * time.Minute)},
		{"bare minutes", "45", after.Add(45 * time.Minute)},
		{"cron every half hour", "*/30 * * * *", time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"empty falls back to default", "", after.Add(60 * time.Minute)},
		{"garbage falls back to default", "often", after.Add(60 * time.Minute)},
		{"negative duration falls back", "-5m", after.Add(60 * time.Minute)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextFireTime(tc.frequency, after)
			if !got.Equal(tc.want) {
				t.Errorf("NextFireTime(%q) = %v, want %v", tc.frequency, got, tc.want)
			}
		})
	}
}
