package domain

import (
	"errors"
	"testing"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		ts    int64
		width int64
		want  int64
	}{
		{0, 60, 0},
		{59, 60, 0},
		{60, 60, 60},
		{125, 60, 120},
		{1700000042, 60, 1700000040},
		{1700000042, 300, 1699999800},
		{1700000042, 3600, 1699999200},
	}
	for _, tt := range tests {
		if got := Bucket(tt.ts, tt.width); got != tt.want {
			t.Errorf("Bucket(%d, %d) = %d, want %d", tt.ts, tt.width, got, tt.want)
		}
	}
}

func TestIntervalWidth(t *testing.T) {
	tests := []struct {
		interval string
		want     int64
		ok       bool
	}{
		{"1m", 60, true},
		{"5m", 300, true},
		{"15m", 900, true},
		{"1h", 3600, true},
		{"2m", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := IntervalWidth(tt.interval)
		if got != tt.want || ok != tt.ok {
			t.Errorf("IntervalWidth(%q) = %d, %v, want %d, %v", tt.interval, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIntervals(t *testing.T) {
	got := Intervals()
	if len(got) != 4 {
		t.Fatalf("got %d intervals, want 4", len(got))
	}
	for _, iv := range got {
		if _, ok := IntervalWidth(iv); !ok {
			t.Errorf("Intervals() returned %q with no width", iv)
		}
	}
}

func TestTradeEventValidate(t *testing.T) {
	valid := TradeEvent{Time: 1700000000, Price: 100, Quantity: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	tests := []struct {
		name string
		ev   TradeEvent
	}{
		{"zero time", TradeEvent{Price: 100, Quantity: 1}},
		{"negative time", TradeEvent{Time: -1, Price: 100, Quantity: 1}},
		{"zero price", TradeEvent{Time: 1, Quantity: 1}},
		{"zero quantity", TradeEvent{Time: 1, Price: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ev.Validate(); !errors.Is(err, ErrMalformedTrade) {
				t.Errorf("Validate() = %v, want ErrMalformedTrade", err)
			}
		})
	}
}
