package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/camera"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const (
	// Backoff schedule for capture failures. A long streak usually means the
	// camera is down, so back off hard instead of hammering it.
	failureStreakLimit       = 5
	streakBackoff            = 300 * time.Second
	captureFailureBackoff    = 60 * time.Second
	unexpectedFailureBackoff = 30 * time.Second

	sequencesToKeep = 3

	// Analysis results are flushed to the data store every Nth capture; the
	// full-resolution history lives in memory.
	analysisFlushEvery = 10
)

// Orchestrator runs the capture-analyze-assemble loop and exposes the
// control surface the HTTP server fronts.
type Orchestrator struct {
	svcs        ServicesFactory
	errorStream chan interface{}
	statsStream chan interface{}

	lock       sync.RWMutex
	running    bool
	runID      string
	startTime  time.Time
	captures   int
	failures   int
	sequences  int
	analyses   int
	lastUpdate *time.Time

	parentCtx context.Context
	canxFn    context.CancelFunc
	loopDone  chan struct{}
}

func NewOrchestrator(svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) *Orchestrator {
	return &Orchestrator{
		svcs:        svcs,
		errorStream: errorStream,
		statsStream: statsStream,
	}
}

// Start launches the capture loop. It returns immediately; the loop runs
// until the context is cancelled.
func (o *Orchestrator) Start(canxCtx context.Context) {
	o.lock.Lock()
	defer o.lock.Unlock()

	if o.running {
		lgr.Logger.Warn("orchestrator already running, ignoring start")
		return
	}

	o.parentCtx = canxCtx
	loopCtx, canxFn := context.WithCancel(canxCtx)
	o.canxFn = canxFn
	o.loopDone = make(chan struct{})
	o.running = true
	o.runID = uuid.NewString()
	o.startTime = time.Now()
	o.captures = 0
	o.failures = 0
	o.sequences = 0
	o.analyses = 0

	lgr.Logger.Info(
		"capture loop starting....",
		slog.String("runID", o.runID),
		slog.String("camera", o.svcs.CfgSvc.GetCameraIP()),
	)

	go o.run(loopCtx)
}

// Stop cancels the loop and waits for it to exit.
func (o *Orchestrator) Stop() {
	o.lock.Lock()
	canxFn := o.canxFn
	done := o.loopDone
	o.lock.Unlock()

	if canxFn == nil {
		return
	}

	canxFn()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) run(canxCtx context.Context) {
	defer func() {
		o.lock.Lock()
		o.running = false
		close(o.loopDone)
		o.lock.Unlock()
	}()

	streak := 0

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info("capture loop context cancelled")
			o.reportStats("cancelled")
			return
		default:
		}

		if err := o.captureCycle(canxCtx); err != nil {
			streak++
			o.lock.Lock()
			o.failures++
			o.lock.Unlock()

			// WARNING: We need an extra check to make sure we don't send on a closed channel
			select {
			case <-canxCtx.Done():
				return
			case o.errorStream <- model.GenError("capture_loop",
				err,
				map[string]interface{}{"streak": streak},
				"capture cycle failed"):
			}

			if !sleepWithCancel(canxCtx, backoffFor(streak, err)) {
				return
			}
			continue
		}

		streak = 0

		if o.sequenceDue() {
			o.generateSequence(canxCtx)
		}

		o.svcs.StorageSvc.EnforceLimits()

		// Re-derive the cadence every iteration so config updates take
		// effect without a restart
		interval := time.Duration(o.svcs.CfgSvc.CaptureInterval() * float64(time.Second))
		if !sleepWithCancel(canxCtx, interval) {
			return
		}
	}
}

func (o *Orchestrator) captureCycle(canxCtx context.Context) error {
	ctx, span := lgr.Tracer.Start(canxCtx, "capture-cycle")
	defer span.End()

	frame, err := o.svcs.CameraSvc.Capture(ctx)
	if err != nil {
		return err
	}

	o.lock.Lock()
	o.captures++
	o.lock.Unlock()

	dyn := o.svcs.CfgSvc.Dynamic()

	if dyn.AnalyticsEnabled {
		wx := o.currentWeather(ctx, dyn)
		result := o.svcs.AnalyticsSvc.Analyze(frame, dyn.ROI(), wx)

		o.lock.Lock()
		o.analyses++
		flush := o.analyses%analysisFlushEvery == 0
		o.lock.Unlock()

		if flush {
			if err := o.svcs.DataSvc.NewAnalysisResult(result); err != nil {
				lgr.Logger.Warn("failed to persist analysis result", slog.Any("error", err))
			}
		}
	}

	if _, err := o.svcs.StorageSvc.SaveFrame(frame.Data, frame.Timestamp); err != nil {
		return err
	}

	return nil
}

func (o *Orchestrator) currentWeather(ctx context.Context, dyn config.Dynamic) model.WeatherSnapshot {
	if !dyn.WeatherEnabled {
		return model.WeatherSnapshot{
			Temperature:   45.0,
			Humidity:      45.0,
			Conditions:    "Clear",
			WindDirection: "N",
			Timestamp:     time.Now(),
			Source:        "disabled",
		}
	}

	return o.svcs.WeatherSvc.Current(ctx, dyn.WeatherLatitude, dyn.WeatherLongitude)
}

func (o *Orchestrator) sequenceDue() bool {
	o.lock.RLock()
	last := o.lastUpdate
	o.lock.RUnlock()

	if last == nil {
		return true
	}

	interval := time.Duration(o.svcs.CfgSvc.Dynamic().SequenceUpdateMins) * time.Minute
	return time.Since(*last) >= interval
}

func (o *Orchestrator) generateSequence(canxCtx context.Context) {
	ctx, span := lgr.Tracer.Start(canxCtx, "sequence-job")
	defer span.End()

	jobID := uuid.NewString()
	jobStart := time.Now()

	// The update timestamp is stamped no matter how the job ends. A broken
	// camera or empty frame window must not cause a tight retry loop.
	defer func() {
		now := time.Now()
		o.lock.Lock()
		o.lastUpdate = &now
		o.lock.Unlock()
	}()

	dyn := o.svcs.CfgSvc.Dynamic()
	window := time.Duration(o.svcs.CfgSvc.GetSequenceDurationMinutes()) * time.Minute

	stored, err := o.svcs.StorageSvc.Recent(window, dyn.MaxImagesPerSequence)
	if err != nil {
		o.reportError(ctx, model.GenError("sequence_job",
			err,
			map[string]interface{}{"jobID": jobID},
			"error listing recent frames"))
		return
	}

	if len(stored) == 0 {
		lgr.Logger.Warn("no recent frames available for sequence", slog.String("jobID", jobID))
		return
	}

	// Snapshot the frame bytes up front so cleanup cannot race the assembly
	frames := make([]model.Frame, 0, len(stored))
	for _, sf := range stored {
		data, err := os.ReadFile(sf.Path)
		if err != nil {
			lgr.Logger.Warn("skipping unreadable frame",
				slog.String("path", sf.Path),
				slog.Any("error", err),
			)
			continue
		}
		frames = append(frames, model.Frame{Data: data, Timestamp: sf.Timestamp, Source: "storage"})
	}

	latest := o.svcs.AnalyticsSvc.Latest()
	for i := range frames {
		frames[i].Data = o.svcs.OverlaySvc.Timestamp(frames[i].Data, frames[i].Timestamp, dyn.LocationName)
		if dyn.OverlayEnabled && dyn.OverlayStyle != "none" {
			frames[i].Data = o.svcs.OverlaySvc.Analytics(frames[i].Data, latest, dyn.OverlayStyle)
		}
	}

	target := o.svcs.StorageSvc.NextSequencePath(time.Now())
	info, err := o.svcs.SequenceSvc.Assemble(frames, target, dyn.GifFrameDurationSeconds, dyn.GifOptimizationLevel)
	if err != nil {
		o.reportError(ctx, model.GenError("sequence_job",
			err,
			map[string]interface{}{"jobID": jobID, "frames": len(frames)},
			"error assembling sequence"))
		return
	}

	o.lock.Lock()
	o.sequences++
	o.lock.Unlock()

	o.svcs.StorageSvc.PruneSequences(sequencesToKeep)

	// WARNING: We need an extra check to make sure we don't send on a closed channel
	select {
	case <-ctx.Done():
		return
	case o.statsStream <- model.SequenceStats{
		JobID:    jobID,
		Frames:   info.FrameCount,
		SizeKB:   float64(info.SizeBytes) / 1024.0,
		ProcTime: time.Since(jobStart).Seconds(),
	}:
	}

	o.reportStats("ok")

	if o.svcs.MirrorSvc.Enabled() {
		// Fire and forget. The mirror bounds its own runtime and failures
		// never gate the pipeline.
		go o.svcs.MirrorSvc.Sync(ctx, o.svcs.CfgSvc.GetSequencesFolder())
	}
}

// LatestSequencePath returns the newest completed sequence on disk, or "".
func (o *Orchestrator) LatestSequencePath() string {
	return o.svcs.StorageSvc.LatestSequencePath()
}

func (o *Orchestrator) Status() model.StatusReport {
	o.lock.RLock()
	running := o.running
	last := o.lastUpdate
	o.lock.RUnlock()

	return model.StatusReport{
		IsRunning:          running,
		LastSequenceUpdate: last,
		CameraInfo:         o.svcs.CameraSvc.Info(),
		StorageUsage:       o.svcs.StorageSvc.Usage(),
		LatestSequence:     o.svcs.StorageSvc.LatestSequencePath(),
		LatestAnalysis:     o.svcs.AnalyticsSvc.Latest(),
		MirrorEnabled:      o.svcs.MirrorSvc.Enabled(),
	}
}

func (o *Orchestrator) UpdateConfig(updates map[string]interface{}) (config.Dynamic, []config.FieldError) {
	return o.svcs.CfgSvc.UpdateDynamic(updates)
}

func (o *Orchestrator) ResetConfig() config.Dynamic {
	return o.svcs.CfgSvc.ResetDynamic()
}

func (o *Orchestrator) CurrentConfig() config.Dynamic {
	return o.svcs.CfgSvc.Dynamic()
}

// Reload stops the loop, re-reads configuration from disk and environment,
// and relaunches the loop under the original parent context.
func (o *Orchestrator) Reload() error {
	o.lock.RLock()
	parent := o.parentCtx
	o.lock.RUnlock()

	if parent == nil {
		return errors.New("orchestrator was never started")
	}

	lgr.Logger.Info("reloading configuration and restarting capture loop")

	o.Stop()

	if err := o.svcs.CfgSvc.Reload(); err != nil {
		return err
	}

	if parent.Err() != nil {
		// Shutdown is in progress; do not relaunch
		return parent.Err()
	}

	o.Start(parent)
	return nil
}

func (o *Orchestrator) AnalyticsSummary() map[string]interface{} {
	dyn := o.svcs.CfgSvc.Dynamic()
	latest := o.svcs.AnalyticsSvc.Latest()

	summary := map[string]interface{}{
		"enabled":      dyn.AnalyticsEnabled,
		"location":     dyn.LocationName,
		"overlayStyle": dyn.OverlayStyle,
		"historyCount": len(o.svcs.AnalyticsSvc.History(0)),
	}
	if latest != nil {
		summary["latest"] = latest
	}

	return summary
}

// AnalyticsHistory returns the in-memory results newer than the given horizon.
func (o *Orchestrator) AnalyticsHistory(hours int) []model.AnalysisResult {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	all := o.svcs.AnalyticsSvc.History(0)
	results := make([]model.AnalysisResult, 0, len(all))
	for _, r := range all {
		if r.Timestamp.After(cutoff) {
			results = append(results, r)
		}
	}

	return results
}

func (o *Orchestrator) reportStats(lastStatus string) {
	o.lock.RLock()
	stats := model.CaptureStats{
		RunID:      o.runID,
		Captures:   o.captures,
		Failures:   o.failures,
		Sequences:  o.sequences,
		Uptime:     int64(time.Since(o.startTime).Seconds()),
		LastStatus: lastStatus,
	}
	o.lock.RUnlock()

	select {
	case o.statsStream <- stats:
	default:
		// Nobody draining; stats are advisory
	}
}

func (o *Orchestrator) reportError(ctx context.Context, err model.CustomError) {
	select {
	case <-ctx.Done():
	case o.errorStream <- err:
	}
}

// backoffFor picks the retry delay after a failed capture cycle.
func backoffFor(streak int, err error) time.Duration {
	if streak >= failureStreakLimit {
		return streakBackoff
	}
	if errors.Is(err, camera.ErrCapture) {
		return captureFailureBackoff
	}
	return unexpectedFailureBackoff
}

func sleepWithCancel(canxCtx context.Context, d time.Duration) bool {
	if d <= 0 {
		return canxCtx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-canxCtx.Done():
		return false
	case <-timer.C:
		return true
	}
}
