package storage

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const (
	frameTimeLayout = "20060102_150405"
	highWaterMark   = 90.0 // percent
	// Normal retention; halved when the high-water mark is crossed
	retentionHours = 24
)

type filesService struct {
	CfgSvc config.IService
}

func NewFiles(cfgsvc config.IService) IService {
	svc := &filesService{
		CfgSvc: cfgsvc,
	}

	for _, dir := range []string{cfgsvc.GetFramesFolder(), cfgsvc.GetSequencesFolder()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			lgr.Logger.Error("error creating storage folder",
				slog.String("folder", dir),
				slog.Any("error", err),
			)
		}
	}

	return svc
}

func (svc *filesService) SaveFrame(data []byte, ts time.Time) (string, error) {
	base := fmt.Sprintf("snapshot_%s", ts.Format(frameTimeLayout))
	path := filepath.Join(svc.CfgSvc.GetFramesFolder(), base+".jpg")

	// Same-second captures get a numeric suffix instead of clobbering
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(svc.CfgSvc.GetFramesFolder(), fmt.Sprintf("%s_%d.jpg", base, n))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error saving frame: %w", err)
	}

	lgr.Logger.Info("image saved",
		slog.String("path", path),
		slog.Int("sizeBytes", len(data)),
	)

	return path, nil
}

func (svc *filesService) Recent(window time.Duration, max int) ([]StoredFrame, error) {
	cutoff := time.Now().Add(-window)

	paths, err := filepath.Glob(filepath.Join(svc.CfgSvc.GetFramesFolder(), "*.jpg"))
	if err != nil {
		return nil, err
	}

	frames := []StoredFrame{}
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil || st.ModTime().Before(cutoff) {
			continue
		}

		frames = append(frames, StoredFrame{
			Path:      path,
			Timestamp: frameTimestamp(path, st.ModTime()),
		})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Timestamp.Before(frames[j].Timestamp)
	})

	if max > 0 && len(frames) > max {
		frames = frames[:max]
	}

	return frames, nil
}

func (svc *filesService) NextSequencePath(ts time.Time) string {
	name := fmt.Sprintf("sequence_%s.gif", ts.Format(frameTimeLayout))
	return filepath.Join(svc.CfgSvc.GetSequencesFolder(), name)
}

func (svc *filesService) LatestSequencePath() string {
	paths, err := filepath.Glob(filepath.Join(svc.CfgSvc.GetSequencesFolder(), "*.gif"))
	if err != nil || len(paths) == 0 {
		return ""
	}

	latest := ""
	var latestMtime time.Time
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || st.ModTime().After(latestMtime) {
			latest = path
			latestMtime = st.ModTime()
		}
	}

	return latest
}

func (svc *filesService) PruneSequences(keep int) int {
	paths, err := filepath.Glob(filepath.Join(svc.CfgSvc.GetSequencesFolder(), "*.gif"))
	if err != nil {
		return 0
	}

	type entry struct {
		path  string
		mtime time.Time
	}

	entries := make([]entry, 0, len(paths))
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: path, mtime: st.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].mtime.After(entries[j].mtime)
	})

	if keep > len(entries) {
		keep = len(entries)
	}

	deleted := 0
	for _, e := range entries[keep:] {
		if err := os.Remove(e.path); err == nil {
			deleted++
			lgr.Logger.Info("old sequence deleted", slog.String("path", e.path))
		}
	}

	return deleted
}

func (svc *filesService) Usage() model.StorageUsage {
	framesSize, frameCount := dirUsage(svc.CfgSvc.GetFramesFolder(), ".jpg")
	sequencesSize, sequenceCount := dirUsage(svc.CfgSvc.GetSequencesFolder(), ".gif")

	totalMB := float64(framesSize+sequencesSize) / (1024 * 1024)
	maxMB := svc.CfgSvc.GetMaxStorageMB()

	percent := 0.0
	if maxMB > 0 {
		percent = round2(totalMB / float64(maxMB) * 100)
	}

	return model.StorageUsage{
		FramesSizeMB:    round2(float64(framesSize) / (1024 * 1024)),
		SequencesSizeMB: round2(float64(sequencesSize) / (1024 * 1024)),
		TotalSizeMB:     round2(totalMB),
		MaxStorageMB:    maxMB,
		UsagePercent:    percent,
		FrameCount:      frameCount,
		SequenceCount:   sequenceCount,
	}
}

func (svc *filesService) CleanupOldFiles(maxAge time.Duration) (int, int) {
	cutoff := time.Now().Add(-maxAge)

	framesDeleted := removeOlderThan(svc.CfgSvc.GetFramesFolder(), "*.jpg", cutoff)
	sequencesDeleted := removeOlderThan(svc.CfgSvc.GetSequencesFolder(), "*.gif", cutoff)

	lgr.Logger.Info("file cleanup completed",
		slog.Int("framesDeleted", framesDeleted),
		slog.Int("sequencesDeleted", sequencesDeleted),
	)

	return framesDeleted, sequencesDeleted
}

func (svc *filesService) EnforceLimits() bool {
	usage := svc.Usage()
	if usage.UsagePercent <= highWaterMark {
		return false
	}

	lgr.Logger.Warn("storage usage high, performing cleanup",
		slog.Float64("usagePercent", usage.UsagePercent),
	)

	svc.CleanupOldFiles(retentionHours / 2 * time.Hour)
	return true
}

// frameTimestamp parses the capture time encoded in the filename, falling
// back to the file mtime for foreign files.
func frameTimestamp(path string, mtime time.Time) time.Time {
	base := filepath.Base(path)
	name := base[:len(base)-len(filepath.Ext(base))]

	// snapshot_YYYYMMDD_HHMMSS or snapshot_YYYYMMDD_HHMMSS_N
	if len(name) >= len("snapshot_")+len(frameTimeLayout) {
		stamp := name[len("snapshot_") : len("snapshot_")+len(frameTimeLayout)]
		if ts, err := time.ParseInLocation(frameTimeLayout, stamp, time.Local); err == nil {
			return ts
		}
	}

	return mtime
}

func dirUsage(dir, ext string) (int64, int) {
	var size int64
	count := 0

	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		size += info.Size()
		if filepath.Ext(path) == ext {
			count++
		}
		return nil
	})

	return size, count
}

func removeOlderThan(dir, pattern string, cutoff time.Time) int {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}

	deleted := 0
	for _, path := range paths {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		if st.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deleted++
			}
		}
	}

	return deleted
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
