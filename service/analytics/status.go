package analytics

import (
	"math"

	"github.com/woodlandhills/snowcam/model"
)

// ClassifySurface maps coverage fractions and road brightness to a discrete
// surface condition. The precedence ladder is checked in order; first match
// wins, even where conditions overlap.
func ClassifySurface(snow, wet, ice, brightness float64) model.SurfaceCondition {
	switch {
	case snow > 0.7:
		return model.SurfaceSnowCovered
	case snow > 0.4:
		return model.SurfacePartialSnow
	case ice > 0.3:
		return model.SurfaceIcy
	case wet > 0.5:
		return model.SurfaceWet
	case wet > 0.2:
		return model.SurfaceDamp
	case brightness > 150:
		return model.SurfaceCleanDry
	default:
		return model.SurfaceDry
	}
}

// Confidence is twice the strongest coverage signal, capped at 1.0.
func Confidence(snow, wet, ice float64) float64 {
	return math.Min(math.Max(snow, math.Max(wet, ice))*2, 1.0)
}

// DetermineRoadStatus derives the driver-facing hazard label from surface
// condition, coverage fractions, temperature (Fahrenheit) and snow depth
// (inches). This ladder is policy, not measurement: the order is part of the
// externally observable behavior and must not be rearranged.
func DetermineRoadStatus(
	condition model.SurfaceCondition,
	snow, wet, ice float64,
	temperature, snowDepth float64,
) model.RoadStatus {
	switch {
	case condition == model.SurfaceSnowCovered || snow > 0.7:
		if snowDepth > 2.0 || temperature < 28 {
			return model.RoadHazardous
		}
		return model.RoadSlippery

	case condition == model.SurfacePartialSnow || snow > 0.3:
		return model.RoadSlippery

	case condition == model.SurfaceIcy || ice > 0.3:
		return model.RoadIcy

	case ice > 0.1 && temperature < 32:
		return model.RoadIcePossible

	case condition == model.SurfaceWet || wet > 0.5:
		if temperature < 35 {
			return model.RoadWetIceRisk
		}
		return model.RoadWet

	case condition == model.SurfaceDamp || wet > 0.2:
		return model.RoadDamp

	case temperature < 32 && wet > 0.1:
		return model.RoadFreezing

	default:
		return model.RoadClear
	}
}

// accumulationRate prefers the weather-derived estimate; with no usable
// weather signal it falls back to differencing the last two snow depth
// readings from history.
func accumulationRate(weather model.WeatherSnapshot, history []model.AnalysisResult) model.AccumulationRate {
	if weather.SnowAccum1Hr != 0 || weather.Source != "fallback" {
		// A snapshot from a disabled weather service carries no API data;
		// keep its provenance instead of claiming an API source.
		source := "weather_api"
		if weather.Source == "disabled" {
			source = "disabled"
		}
		return model.AccumulationRate{
			RatePerHour: weather.SnowAccum1Hr,
			Trend:       trendOf(weather.SnowAccum1Hr),
			Accum1Hr:    weather.SnowAccum1Hr,
			Accum3Hr:    weather.SnowAccum3Hr,
			Accum6Hr:    weather.SnowAccum6Hr,
			Source:      source,
		}
	}

	if len(history) < 2 {
		return model.AccumulationRate{Trend: "insufficient_data", Source: "historical"}
	}

	prev := history[len(history)-2]
	last := history[len(history)-1]
	hours := last.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		return model.AccumulationRate{Trend: "no_change", Source: "historical"}
	}

	rate := (last.Weather.SnowDepthInches - prev.Weather.SnowDepthInches) / hours
	rate = math.Round(rate*100) / 100

	return model.AccumulationRate{
		RatePerHour: rate,
		Trend:       trendOf(rate),
		Source:      "historical",
	}
}

func trendOf(rate float64) string {
	switch {
	case rate > 0.1:
		return "increasing"
	case rate < -0.1:
		return "decreasing"
	default:
		return "stable"
	}
}

// generatePredictions projects snow depth and ice risk 1/3/6 hours out from
// the current weather snapshot.
func generatePredictions(weather model.WeatherSnapshot) map[string]model.Prediction {
	depth := weather.SnowDepthInches
	accum := weather.SnowAccum1Hr

	predictions := map[string]model.Prediction{
		"1_hour": {SnowDepth: depth, IceRisk: "low", Accumulation: accum},
		"3_hour": {SnowDepth: depth, IceRisk: "low", Accumulation: accum * 3},
		"6_hour": {SnowDepth: depth, IceRisk: "low", Accumulation: accum * 6},
	}

	if accum > 0 {
		for _, key := range []string{"1_hour", "3_hour", "6_hour"} {
			p := predictions[key]
			p.SnowDepth = math.Round((depth+p.Accumulation)*10) / 10
			predictions[key] = p
		}
	}

	switch {
	case weather.Temperature < 28:
		for key, p := range predictions {
			p.IceRisk = "high"
			predictions[key] = p
		}
	case weather.Temperature < 32:
		for _, key := range []string{"3_hour", "6_hour"} {
			p := predictions[key]
			p.IceRisk = "medium"
			predictions[key] = p
		}
	case weather.Temperature < 35 && depth > 0:
		for key, p := range predictions {
			p.IceRisk = "medium"
			predictions[key] = p
		}
	}

	return predictions
}
