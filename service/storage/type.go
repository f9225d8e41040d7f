package storage

import (
	"time"

	"github.com/woodlandhills/snowcam/model"
)

// StoredFrame is one on-disk frame discovered by scanning the frames folder.
type StoredFrame struct {
	Path      string
	Timestamp time.Time
}

type IService interface {
	// SaveFrame persists raw frame bytes under a deterministic,
	// collision-safe filename derived from the capture timestamp.
	SaveFrame(data []byte, ts time.Time) (string, error)
	// Recent returns frames whose mtime falls within the window, oldest
	// first, capped at max.
	Recent(window time.Duration, max int) ([]StoredFrame, error)
	// NextSequencePath builds the output path for a sequence assembled at ts.
	NextSequencePath(ts time.Time) string
	// LatestSequencePath returns the newest completed sequence, or "".
	LatestSequencePath() string
	// PruneSequences deletes all but the newest keep sequences.
	PruneSequences(keep int) int
	Usage() model.StorageUsage
	// CleanupOldFiles removes frames and sequences older than maxAge and
	// returns (framesDeleted, sequencesDeleted).
	CleanupOldFiles(maxAge time.Duration) (int, int)
	// EnforceLimits runs aggressive cleanup once usage crosses the
	// high-water mark. Returns true when a cleanup was performed.
	EnforceLimits() bool
}
