package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/woodlandhills/snowcam/httpd"
	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/pipeline"
	"github.com/woodlandhills/snowcam/service/lgr"
)

// The server mode runs the capture pipeline and fronts it with the HTTP API.
// This is the normal production mode.
func Server(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	// Create an error stream
	errorStream := make(chan interface{})
	defer close(errorStream)

	// Create a stats stream
	statsStream := make(chan interface{})
	defer close(statsStream)

	orch := pipeline.NewOrchestrator(svcs, errorStream, statsStream)
	orch.Start(canxCtx)

	httpServer := httpd.NewServer(svcs.CfgSvc, orch)
	httpResult := make(chan error, 1)
	go func() {
		httpResult <- httpServer.Run(canxCtx)
	}()

	// Wait for cancellation, http server exit, stats or errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"server mode context cancelled",
			)
			goto resume

		case err := <-httpResult:
			if err != nil {
				procError(svcs.DataSvc, model.GenError("server_mode",
					err,
					map[string]interface{}{},
					"http server exited with error"))
			}
			goto resume

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` seconds for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are exiting
resume:
	lgr.Logger.Info(
		"server mode is waiting for all go routines to exit",
	)

	// Stop the capture loop first so nothing sends on the streams after the
	// deferred closes run
	orch.Stop()

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"server mode shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)

			return nil

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}
