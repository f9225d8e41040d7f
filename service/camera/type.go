package camera

import (
	"context"
	"errors"

	"github.com/woodlandhills/snowcam/model"
)

// ErrCapture marks transient capture failures: unreachable feed, timeout,
// empty or undecodable data. The orchestrator retries these with backoff.
var ErrCapture = errors.New("capture failed")

type IService interface {
	// Capture grabs one still frame from the feed. The returned timestamp is
	// the wall-clock time of the completed capture, not a feed-embedded time.
	Capture(ctx context.Context) (model.Frame, error)
	// TestConnection performs one capture and swallows failure into a boolean.
	// Used for startup diagnostics only.
	TestConnection(ctx context.Context) bool
	Info() model.CameraInfo
}
