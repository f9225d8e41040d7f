package config

import (
	"fmt"

	"github.com/woodlandhills/snowcam/model"
)

// Dynamic is the hot-reloadable analytics configuration. It is persisted to a
// JSON side file and mutated only through UpdateDynamic.
type Dynamic struct {
	AnalyticsEnabled        bool         `json:"analytics_enabled"`
	AnalyticsIntervalMins   int          `json:"analytics_update_interval_minutes"`
	WeatherEnabled          bool         `json:"weather_api_enabled"`
	WeatherLatitude         float64      `json:"weather_latitude"`
	WeatherLongitude        float64      `json:"weather_longitude"`
	LocationName            string       `json:"weather_location_name"`
	OverlayEnabled          bool         `json:"analytics_overlay_enabled"`
	OverlayStyle            string       `json:"analytics_overlay_style"` // full | minimal | none
	SnowDetectionThreshold  float64      `json:"snow_detection_threshold"`
	IceWarningTemperature   float64      `json:"ice_warning_temperature"`
	HazardousSnowDepth      float64      `json:"hazardous_snow_depth"`
	SequenceUpdateMins      int          `json:"sequence_update_interval_minutes"`
	MaxImagesPerSequence    int          `json:"max_images_per_sequence"`
	GifFrameDurationSeconds float64      `json:"gif_frame_duration_seconds"`
	GifOptimizationLevel    string       `json:"gif_optimization_level"` // low | balanced | aggressive
	RoadROIPoints           [][2]float64 `json:"road_roi_points"`
	RoadROIEnabled          bool         `json:"road_roi_enabled"`
	LastUpdated             string       `json:"last_updated,omitempty"`
}

// ROI projects the road ROI settings into the model type consumed by the analyzer.
func (d Dynamic) ROI() model.ROI {
	return model.ROI{
		Enabled: d.RoadROIEnabled,
		Points:  d.RoadROIPoints,
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetAPIPort() int

	// Camera statics
	GetCameraIP() string
	GetCameraPort() int
	GetCameraUsername() string
	GetCameraPassword() string
	GetCameraRtspPath() string
	GetCameraResolution() string
	GetCameraURL() string
	GetCaptureTimeout() int // seconds

	// Storage statics
	GetDataFolder() string
	GetFramesFolder() string
	GetSequencesFolder() string
	GetMaxStorageMB() int
	GetSequenceDurationMinutes() int

	// Mirror statics
	IsMirrorEnabled() bool
	GetMirrorHost() string
	GetMirrorUser() string
	GetMirrorRemotePath() string
	GetMirrorPort() int
	GetMirrorSSHKeyPath() string
	GetMirrorRsyncOptions() string

	// Dynamic analytics configuration
	Dynamic() Dynamic
	// UpdateDynamic applies a partial update. Validation is all-or-nothing:
	// on any field error the current state is unchanged and the error list
	// names every offending field.
	UpdateDynamic(updates map[string]interface{}) (Dynamic, []FieldError)
	ResetDynamic() Dynamic
	Reload() error

	// CaptureInterval derives the capture cadence in seconds from the live
	// dynamic configuration: (sequence_update_interval_minutes * 60) / max_images.
	CaptureInterval() float64
}
