package overlay

import (
	"testing"
	"time"

	"github.com/woodlandhills/snowcam/model"
)

func TestDisplayTimeRoundsDownToFiveMinutes(t *testing.T) {
	tests := []struct {
		minute   int
		second   int
		expected int
	}{
		{minute: 0, second: 30, expected: 0},
		{minute: 4, second: 59, expected: 0},
		{minute: 5, second: 0, expected: 5},
		{minute: 33, second: 12, expected: 30},
		{minute: 59, second: 59, expected: 55},
	}

	for _, tt := range tests {
		ts := time.Date(2026, 1, 15, 7, tt.minute, tt.second, 0, time.Local)
		got := displayTime(ts)
		if got.Minute() != tt.expected {
			t.Errorf("displayTime(07:%02d:%02d).Minute() = %d, want %d",
				tt.minute, tt.second, got.Minute(), tt.expected)
		}
		if got.Second() != 0 {
			t.Errorf("displayTime should zero seconds, got %d", got.Second())
		}
	}
}

func TestDisplayTimeFormat(t *testing.T) {
	ts := time.Date(2026, 1, 15, 14, 33, 12, 0, time.Local)
	got := displayTime(ts).Format("Monday, January 02, 2006  03:04 PM")

	if got != "Thursday, January 15, 2026  02:30 PM" {
		t.Errorf("formatted time = %q", got)
	}
}

func TestStatusColor(t *testing.T) {
	if statusColor(model.RoadClear) != green {
		t.Error("clear roads should render green")
	}
	if statusColor(model.RoadHazardous) != red {
		t.Error("hazardous roads should render red")
	}
	if statusColor(model.RoadIcy) != red {
		t.Error("icy roads should render red")
	}
	if statusColor(model.RoadWet) != orange {
		t.Error("intermediate statuses should render orange")
	}
}

func TestTimestampDegradesOnBadFrame(t *testing.T) {
	svc := NewGocv()
	original := []byte("definitely not a jpeg")

	out := svc.Timestamp(original, time.Now(), "Woodland Hills")
	if string(out) != string(original) {
		t.Error("undecodable frames must be returned unmodified")
	}
}

func TestAnalyticsNoOpCases(t *testing.T) {
	svc := NewGocv()
	original := []byte("frame-bytes")

	if out := svc.Analytics(original, nil, "full"); string(out) != string(original) {
		t.Error("nil analysis must be a no-op")
	}

	analysis := &model.AnalysisResult{RoadStatus: model.RoadClear}
	if out := svc.Analytics(original, analysis, "none"); string(out) != string(original) {
		t.Error("style none must be a no-op")
	}
}
