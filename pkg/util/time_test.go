package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03.000"},
		{-time.Second, "00:00:00.000"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{65 * time.Second, "01:05"},
		{3725 * time.Second, "01:02:05"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"4.5", 4500 * time.Millisecond, true},
		{"01:30", 90 * time.Second, true},
		{"00:01:02.250", 62250 * time.Millisecond, true},
		{"a:b", 0, false},
		{"1:2:3:4", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseTimestamp(%q): unexpected error state %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestFromSecondsRoundsToMicroseconds(t *testing.T) {
	if got := FromSeconds(0.1 + 0.2); got != 300*time.Millisecond {
		t.Errorf("expected 300ms, got %v", got)
	}
	if got := FromSeconds(4); got != 4*time.Second {
		t.Errorf("expected 4s, got %v", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30000/1001"); got < 29.96 || got > 29.98 {
		t.Errorf("expected ~29.97, got %f", got)
	}
	if got := ParseFrameRate("30/0"); got != 0 {
		t.Errorf("expected 0 for zero denominator, got %f", got)
	}
}
