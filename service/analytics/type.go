package analytics

import (
	"github.com/woodlandhills/snowcam/model"
)

type IService interface {
	// Analyze classifies the road surface in one frame. It never returns an
	// error: a frame that cannot be processed yields a zeroed result with
	// surface condition "unknown" so the pipeline keeps running.
	Analyze(frame model.Frame, roi model.ROI, weather model.WeatherSnapshot) model.AnalysisResult
	// Latest returns the most recent result, or nil before the first analysis.
	Latest() *model.AnalysisResult
	// History returns up to max recent results, oldest first.
	History(max int) []model.AnalysisResult
}
