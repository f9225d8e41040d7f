package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/woodlandhills/snowcam/mode"
	"github.com/woodlandhills/snowcam/pipeline"
	"github.com/woodlandhills/snowcam/service/analytics"
	"github.com/woodlandhills/snowcam/service/camera"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/data"
	"github.com/woodlandhills/snowcam/service/lgr"
	"github.com/woodlandhills/snowcam/service/mirror"
	"github.com/woodlandhills/snowcam/service/overlay"
	"github.com/woodlandhills/snowcam/service/sequence"
	"github.com/woodlandhills/snowcam/service/storage"
	"github.com/woodlandhills/snowcam/service/weather"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"server": mode.Server,
	"probe":  mode.Probe,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file found, relying on the environment", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "server"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// They can be overridden by the mode processor with different implementations
	// Config service
	cfgSvc := config.NewEnvVars()
	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)
	// Camera service: ffmpeg subprocess by default, in-process rtsp decode as fallback
	var cameraSvc camera.IService
	if os.Getenv("CAPTURE_METHOD") == "rtsp" {
		cameraSvc = camera.NewRtsp(cfgSvc)
	} else {
		cameraSvc = camera.NewFFmpeg(cfgSvc)
	}
	// Weather service
	weatherSvc := weather.NewNOAA()
	// Analytics service
	analyticsSvc := analytics.NewSurface()
	// Overlay service
	overlaySvc := overlay.NewGocv()
	// Sequence service
	sequenceSvc := sequence.NewGif()
	// Storage service
	storageSvc := storage.NewFiles(cfgSvc)
	// Mirror service
	mirrorSvc := mirror.NewRsync(cfgSvc)

	svcs := pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		CameraSvc:    cameraSvc,
		WeatherSvc:   weatherSvc,
		AnalyticsSvc: analyticsSvc,
		OverlaySvc:   overlaySvc,
		SequenceSvc:  sequenceSvc,
		StorageSvc:   storageSvc,
		MirrorSvc:    mirrorSvc,
		DataSvc:      dataSvc,
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation or mode proc exit
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"snowcam context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"snowcam mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are exiting
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"snowcam is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"snowcam shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"snowcam mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}
