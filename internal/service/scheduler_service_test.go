package service

import (
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "0 0 9 * * *"},
		{in: " 21:45 ", want: "0 45 21 * * *"},
		{in: "00:00:05", want: "5 0 0 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:00:61", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tc := range cases {
		got, err := buildDailySpec(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("buildDailySpec(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("buildDailySpec(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	if _, err := s.ScheduleDaily("00:00", func() {}); err != nil {
		t.Fatalf("daily: %v", err)
	}
	if _, err := s.ScheduleInterval(500*time.Millisecond, func() {}); err != nil {
		t.Fatalf("interval: %v", err)
	}
	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Fatalf("zero interval accepted")
	}
	if got := s.Entries(); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
}
