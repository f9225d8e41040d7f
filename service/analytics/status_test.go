package analytics

import (
	"testing"
	"time"

	"github.com/woodlandhills/snowcam/model"
)

func TestClassifySurface(t *testing.T) {
	tests := []struct {
		name       string
		snow       float64
		wet        float64
		ice        float64
		brightness float64
		expected   model.SurfaceCondition
	}{
		{
			name:     "heavy snow coverage",
			snow:     0.85,
			expected: model.SurfaceSnowCovered,
		},
		{
			name:     "partial snow coverage",
			snow:     0.5,
			expected: model.SurfacePartialSnow,
		},
		{
			name:     "icy road",
			ice:      0.4,
			expected: model.SurfaceIcy,
		},
		{
			name:     "wet road",
			wet:      0.6,
			expected: model.SurfaceWet,
		},
		{
			name:     "damp road",
			wet:      0.3,
			expected: model.SurfaceDamp,
		},
		{
			name:       "bright dry pavement",
			brightness: 180,
			expected:   model.SurfaceCleanDry,
		},
		{
			name:       "dark dry pavement",
			brightness: 90,
			expected:   model.SurfaceDry,
		},
		{
			name:     "snow wins over ice at boundary",
			snow:     0.75,
			ice:      0.9,
			expected: model.SurfaceSnowCovered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySurface(tt.snow, tt.wet, tt.ice, tt.brightness)
			if got != tt.expected {
				t.Errorf("ClassifySurface(%v, %v, %v, %v) = %v, want %v",
					tt.snow, tt.wet, tt.ice, tt.brightness, got, tt.expected)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name     string
		snow     float64
		wet      float64
		ice      float64
		expected float64
	}{
		{name: "zero coverage", expected: 0.0},
		{name: "quarter coverage doubles", snow: 0.25, expected: 0.5},
		{name: "clamped at one", snow: 0.8, expected: 1.0},
		{name: "max of classes", snow: 0.1, wet: 0.3, ice: 0.2, expected: 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.snow, tt.wet, tt.ice)
			if got != tt.expected {
				t.Errorf("Confidence(%v, %v, %v) = %v, want %v",
					tt.snow, tt.wet, tt.ice, got, tt.expected)
			}
		})
	}
}

func TestDetermineRoadStatus(t *testing.T) {
	tests := []struct {
		name        string
		condition   model.SurfaceCondition
		snow        float64
		wet         float64
		ice         float64
		temperature float64
		snowDepth   float64
		expected    model.RoadStatus
	}{
		{
			name:        "deep snow below freezing",
			condition:   model.SurfaceSnowCovered,
			snow:        0.8,
			temperature: 20,
			snowDepth:   3.0,
			expected:    model.RoadHazardous,
		},
		{
			name:        "snow covered but shallow and mild",
			condition:   model.SurfaceSnowCovered,
			snow:        0.8,
			temperature: 30,
			snowDepth:   1.0,
			expected:    model.RoadSlippery,
		},
		{
			name:        "partial snow",
			condition:   model.SurfacePartialSnow,
			snow:        0.5,
			temperature: 30,
			expected:    model.RoadSlippery,
		},
		{
			name:        "icy surface",
			condition:   model.SurfaceIcy,
			ice:         0.4,
			temperature: 25,
			expected:    model.RoadIcy,
		},
		{
			name:        "trace ice below freezing",
			condition:   model.SurfaceDry,
			ice:         0.15,
			temperature: 30,
			expected:    model.RoadIcePossible,
		},
		{
			name:        "wet and cold",
			condition:   model.SurfaceWet,
			wet:         0.6,
			temperature: 30,
			expected:    model.RoadWetIceRisk,
		},
		{
			name:        "wet and warm",
			condition:   model.SurfaceWet,
			wet:         0.6,
			temperature: 45,
			expected:    model.RoadWet,
		},
		{
			name:        "damp",
			condition:   model.SurfaceDamp,
			wet:         0.3,
			temperature: 50,
			expected:    model.RoadDamp,
		},
		{
			name:        "light moisture freezing",
			condition:   model.SurfaceDry,
			wet:         0.15,
			temperature: 28,
			expected:    model.RoadFreezing,
		},
		{
			name:        "clear and dry",
			condition:   model.SurfaceDry,
			snow:        0.05,
			temperature: 50,
			expected:    model.RoadClear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineRoadStatus(tt.condition, tt.snow, tt.wet, tt.ice, tt.temperature, tt.snowDepth)
			if got != tt.expected {
				t.Errorf("DetermineRoadStatus(%v) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestAccumulationRatePrefersWeather(t *testing.T) {
	weather := model.WeatherSnapshot{
		Source:       "weather_api",
		SnowAccum1Hr: 0.5,
		SnowAccum3Hr: 1.5,
		SnowAccum6Hr: 3.0,
	}

	rate := accumulationRate(weather, nil)
	if rate.Source != "weather_api" {
		t.Fatalf("expected weather_api source, got %s", rate.Source)
	}
	if rate.RatePerHour != 0.5 {
		t.Errorf("RatePerHour = %v, want 0.5", rate.RatePerHour)
	}
	if rate.Trend != "increasing" {
		t.Errorf("Trend = %v, want increasing", rate.Trend)
	}
}

func TestAccumulationRateKeepsDisabledSource(t *testing.T) {
	weather := model.WeatherSnapshot{
		Source:      "disabled",
		Temperature: 45,
	}

	rate := accumulationRate(weather, nil)
	if rate.Source != "disabled" {
		t.Fatalf("Source = %s, want disabled", rate.Source)
	}
	if rate.RatePerHour != 0 {
		t.Errorf("RatePerHour = %v, want 0", rate.RatePerHour)
	}
}

func TestAccumulationRateHistoricalFallback(t *testing.T) {
	weather := model.WeatherSnapshot{Source: "fallback"}
	base := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)
	history := []model.AnalysisResult{
		{Timestamp: base, Weather: model.WeatherSnapshot{SnowDepthInches: 1.0}},
		{Timestamp: base.Add(time.Hour), Weather: model.WeatherSnapshot{SnowDepthInches: 1.4}},
	}

	rate := accumulationRate(weather, history)
	if rate.Source != "historical" {
		t.Fatalf("expected historical source, got %s", rate.Source)
	}
	if rate.RatePerHour <= 0 {
		t.Errorf("expected positive rate from rising depth, got %v", rate.RatePerHour)
	}
}

func TestGeneratePredictionsIceRisk(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		snowDepth   float64
		horizon     string
		expected    string
	}{
		{name: "deep cold all high", temperature: 25, horizon: "1_hour", expected: "high"},
		{name: "near freezing later horizons", temperature: 30, horizon: "6_hour", expected: "medium"},
		{name: "near freezing short horizon", temperature: 30, horizon: "1_hour", expected: "low"},
		{name: "mild with snowpack", temperature: 34, snowDepth: 1.0, horizon: "3_hour", expected: "medium"},
		{name: "warm and bare", temperature: 50, horizon: "6_hour", expected: "low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds := generatePredictions(model.WeatherSnapshot{
				Temperature:     tt.temperature,
				SnowDepthInches: tt.snowDepth,
			})

			p, ok := preds[tt.horizon]
			if !ok {
				t.Fatalf("missing %s horizon", tt.horizon)
			}
			if p.IceRisk != tt.expected {
				t.Errorf("IceRisk[%s] = %v, want %v", tt.horizon, p.IceRisk, tt.expected)
			}
		})
	}
}
