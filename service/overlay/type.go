package overlay

import (
	"time"

	"github.com/woodlandhills/snowcam/model"
)

// Overlays are cosmetic. Both operations degrade gracefully: on any rendering
// failure the original frame bytes come back unmodified.
type IService interface {
	// Timestamp burns the location label and a display-rounded capture time
	// into the frame. Displayed time is rounded down to the 5-minute boundary
	// so the main and mirrored views always agree.
	Timestamp(frame []byte, ts time.Time, location string) []byte
	// Analytics draws the style-selected summary: "full" panel,
	// "minimal" bottom bar, or "none".
	Analytics(frame []byte, analysis *model.AnalysisResult, style string) []byte
}
