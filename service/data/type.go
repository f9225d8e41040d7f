package data

import "github.com/woodlandhills/snowcam/model"

type IService interface {
	NewError(err interface{}) error
	NewAnalysisResult(result model.AnalysisResult) error
	NewCaptureStats(stats model.CaptureStats) error
	NewSequenceStats(stats model.SequenceStats) error

	RetrieveAnalysisResults() ([]model.AnalysisResult, error)
}
