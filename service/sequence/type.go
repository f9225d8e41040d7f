package sequence

import (
	"errors"

	"github.com/woodlandhills/snowcam/model"
)

// ErrNoFrames is returned when assembly is attempted with no usable frames.
// No output file is written in that case.
var ErrNoFrames = errors.New("no frames provided for sequence")

type IService interface {
	// Assemble encodes the frames, oldest first, into an animated artifact at
	// targetPath with a uniform per-frame duration (seconds) and loop-forever
	// semantics. Frames that fail to decode are skipped; assembly fails only
	// when none remain. The file appears atomically at targetPath.
	Assemble(frames []model.Frame, targetPath string, perFrameDuration float64, optimizationLevel string) (model.SequenceInfo, error)
}
