package mode

import (
	"context"
	"log/slog"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/pipeline"
	"github.com/woodlandhills/snowcam/service/data"
	"github.com/woodlandhills/snowcam/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.CaptureStats:
		procCaptureStats(datasvc, stats)
	case model.SequenceStats:
		procSequenceStats(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procCaptureStats(datasvc data.IService, stats model.CaptureStats) {
	err := datasvc.NewCaptureStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store capture stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSequenceStats(datasvc data.IService, stats model.SequenceStats) {
	err := datasvc.NewSequenceStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store sequence stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
