package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/woodlandhills/snowcam/service/lgr"
)

type envVarsService struct {
	lock       sync.RWMutex
	configFile string
	dynamic    Dynamic
}

func defaultDynamic() Dynamic {
	return Dynamic{
		AnalyticsEnabled:        true,
		AnalyticsIntervalMins:   5,
		WeatherEnabled:          true,
		WeatherLatitude:         40.011771,
		WeatherLongitude:        -111.648000,
		LocationName:            "Woodland Hills City, Utah",
		OverlayEnabled:          true,
		OverlayStyle:            "minimal",
		SnowDetectionThreshold:  0.7,
		IceWarningTemperature:   32,
		HazardousSnowDepth:      2.0,
		SequenceUpdateMins:      5,
		MaxImagesPerSequence:    10,
		GifFrameDurationSeconds: 1.0,
		GifOptimizationLevel:    "balanced",
		RoadROIPoints:           [][2]float64{},
		RoadROIEnabled:          false,
	}
}

// NewEnvVars reads static settings from environment variables and the dynamic
// analytics configuration from a JSON side file next to the data folder.
func NewEnvVars() IService {
	svc := &envVarsService{
		configFile: envOr("ANALYTICS_CONFIG_FILE", "./settings/analytics_config.json"),
	}

	if err := svc.Reload(); err != nil {
		lgr.Logger.Warn("using default analytics configuration",
			slog.String("configFile", svc.configFile),
			slog.Any("error", err),
		)
	}

	return svc
}

func (svc *envVarsService) Reload() error {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	svc.dynamic = defaultDynamic()

	data, err := os.ReadFile(svc.configFile)
	if err != nil {
		return err
	}

	var d Dynamic
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}

	svc.dynamic = d
	return nil
}

func (svc *envVarsService) GetModeMaxShutdownTime() int {
	return envIntOr("MODE_MAX_SHUTDOWN_TIME", 5)
}

func (svc *envVarsService) GetAPIPort() int {
	return envIntOr("API_PORT", 8080)
}

func (svc *envVarsService) GetCameraIP() string {
	return envOr("CAMERA_IP", "192.168.1.110")
}

func (svc *envVarsService) GetCameraPort() int {
	return envIntOr("CAMERA_PORT", 554)
}

func (svc *envVarsService) GetCameraUsername() string {
	return envOr("CAMERA_USERNAME", "admin")
}

func (svc *envVarsService) GetCameraPassword() string {
	return envOr("CAMERA_PASSWORD", "123456")
}

func (svc *envVarsService) GetCameraRtspPath() string {
	return envOr("CAMERA_RTSP_PATH", "/cam/realmonitor?channel=1&subtype=0")
}

func (svc *envVarsService) GetCameraResolution() string {
	return envOr("CAMERA_RESOLUTION", "1920x1080")
}

func (svc *envVarsService) GetCameraURL() string {
	return fmt.Sprintf("rtsp://%s:%s@%s:%d%s",
		svc.GetCameraUsername(),
		svc.GetCameraPassword(),
		svc.GetCameraIP(),
		svc.GetCameraPort(),
		svc.GetCameraRtspPath(),
	)
}

func (svc *envVarsService) GetCaptureTimeout() int {
	return envIntOr("CAPTURE_TIMEOUT", 30)
}

func (svc *envVarsService) GetDataFolder() string {
	return envOr("DATA_FOLDER", "./data")
}

func (svc *envVarsService) GetFramesFolder() string {
	return envOr("FRAMES_FOLDER", filepath.Join(svc.GetDataFolder(), "images"))
}

func (svc *envVarsService) GetSequencesFolder() string {
	return envOr("SEQUENCES_FOLDER", filepath.Join(svc.GetDataFolder(), "sequences"))
}

func (svc *envVarsService) GetMaxStorageMB() int {
	return envIntOr("MAX_STORAGE_MB", 1024)
}

func (svc *envVarsService) GetSequenceDurationMinutes() int {
	return envIntOr("SEQUENCE_DURATION_MINUTES", 5)
}

func (svc *envVarsService) IsMirrorEnabled() bool {
	return envOr("MIRROR_ENABLED", "false") == "true"
}

func (svc *envVarsService) GetMirrorHost() string {
	return envOr("MIRROR_HOST", "")
}

func (svc *envVarsService) GetMirrorUser() string {
	return envOr("MIRROR_USER", "")
}

func (svc *envVarsService) GetMirrorRemotePath() string {
	return envOr("MIRROR_REMOTE_PATH", "")
}

func (svc *envVarsService) GetMirrorPort() int {
	return envIntOr("MIRROR_PORT", 22)
}

func (svc *envVarsService) GetMirrorSSHKeyPath() string {
	return envOr("MIRROR_SSH_KEY_PATH", filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa"))
}

func (svc *envVarsService) GetMirrorRsyncOptions() string {
	return envOr("MIRROR_RSYNC_OPTIONS", "-az --delete")
}

func (svc *envVarsService) Dynamic() Dynamic {
	svc.lock.RLock()
	defer svc.lock.RUnlock()

	d := svc.dynamic
	d.RoadROIPoints = append([][2]float64{}, svc.dynamic.RoadROIPoints...)
	return d
}

func (svc *envVarsService) UpdateDynamic(updates map[string]interface{}) (Dynamic, []FieldError) {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	candidate := svc.dynamic
	candidate.RoadROIPoints = append([][2]float64{}, svc.dynamic.RoadROIPoints...)

	var errs []FieldError
	for key, value := range updates {
		if err := applyField(&candidate, key, value); err != nil {
			errs = append(errs, *err)
		}
	}

	// Cross-field check once all updates are in: an enabled ROI needs a
	// usable polygon.
	if len(errs) == 0 && candidate.RoadROIEnabled &&
		(len(candidate.RoadROIPoints) < 4 || len(candidate.RoadROIPoints) > 12) {
		errs = append(errs, FieldError{
			Field:   "road_roi_points",
			Message: fmt.Sprintf("enabled ROI requires 4-12 points, have %d", len(candidate.RoadROIPoints)),
		})
	}

	if len(errs) > 0 {
		// All-or-nothing: reject the whole request
		return svc.dynamic, errs
	}

	candidate.LastUpdated = time.Now().Format(time.RFC3339)
	svc.dynamic = candidate
	svc.persist()

	return candidate, nil
}

func (svc *envVarsService) ResetDynamic() Dynamic {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	svc.dynamic = defaultDynamic()
	svc.dynamic.LastUpdated = time.Now().Format(time.RFC3339)
	svc.persist()

	return svc.dynamic
}

func (svc *envVarsService) CaptureInterval() float64 {
	svc.lock.RLock()
	defer svc.lock.RUnlock()

	updateMins := svc.dynamic.SequenceUpdateMins
	maxImages := svc.dynamic.MaxImagesPerSequence
	if updateMins <= 0 {
		updateMins = 5
	}
	if maxImages <= 0 {
		maxImages = 10
	}

	return float64(updateMins*60) / float64(maxImages)
}

// persist expects svc.lock to be held.
func (svc *envVarsService) persist() {
	data, err := json.MarshalIndent(svc.dynamic, "", "  ")
	if err != nil {
		lgr.Logger.Error("error marshaling analytics configuration", slog.Any("error", err))
		return
	}

	if err := os.MkdirAll(filepath.Dir(svc.configFile), 0755); err != nil {
		lgr.Logger.Error("error creating settings folder", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(svc.configFile, data, 0644); err != nil {
		lgr.Logger.Error("error persisting analytics configuration",
			slog.String("configFile", svc.configFile),
			slog.Any("error", err),
		)
	}
}

func applyField(d *Dynamic, key string, value interface{}) *FieldError {
	fail := func(format string, args ...interface{}) *FieldError {
		return &FieldError{Field: key, Message: fmt.Sprintf(format, args...)}
	}

	switch key {
	case "analytics_enabled":
		b, ok := value.(bool)
		if !ok {
			return fail("expected boolean, got %v", value)
		}
		d.AnalyticsEnabled = b
	case "analytics_update_interval_minutes":
		n, ok := asInt(value)
		if !ok || n < 1 || n > 60 {
			return fail("expected integer in [1,60], got %v", value)
		}
		d.AnalyticsIntervalMins = n
	case "weather_api_enabled":
		b, ok := value.(bool)
		if !ok {
			return fail("expected boolean, got %v", value)
		}
		d.WeatherEnabled = b
	case "weather_latitude":
		f, ok := asFloat(value)
		if !ok || f < -90 || f > 90 {
			return fail("expected number in [-90,90], got %v", value)
		}
		d.WeatherLatitude = f
	case "weather_longitude":
		f, ok := asFloat(value)
		if !ok || f < -180 || f > 180 {
			return fail("expected number in [-180,180], got %v", value)
		}
		d.WeatherLongitude = f
	case "weather_location_name":
		s, ok := value.(string)
		if !ok || s == "" {
			return fail("expected non-empty string")
		}
		d.LocationName = s
	case "analytics_overlay_enabled":
		b, ok := value.(bool)
		if !ok {
			return fail("expected boolean, got %v", value)
		}
		d.OverlayEnabled = b
	case "analytics_overlay_style":
		s, ok := value.(string)
		if !ok || (s != "full" && s != "minimal" && s != "none") {
			return fail("expected one of full|minimal|none, got %v", value)
		}
		d.OverlayStyle = s
	case "snow_detection_threshold":
		f, ok := asFloat(value)
		if !ok || f < 0 || f > 1 {
			return fail("expected number in [0,1], got %v", value)
		}
		d.SnowDetectionThreshold = f
	case "ice_warning_temperature":
		f, ok := asFloat(value)
		if !ok || f < -50 || f > 100 {
			return fail("expected number in [-50,100], got %v", value)
		}
		d.IceWarningTemperature = f
	case "hazardous_snow_depth":
		f, ok := asFloat(value)
		if !ok || f < 0 || f > 50 {
			return fail("expected number in [0,50], got %v", value)
		}
		d.HazardousSnowDepth = f
	case "sequence_update_interval_minutes":
		n, ok := asInt(value)
		if !ok || n < 1 || n > 60 {
			return fail("expected integer in [1,60], got %v", value)
		}
		d.SequenceUpdateMins = n
	case "max_images_per_sequence":
		n, ok := asInt(value)
		if !ok || n < 1 || n > 30 {
			return fail("expected integer in [1,30], got %v", value)
		}
		d.MaxImagesPerSequence = n
	case "gif_frame_duration_seconds":
		f, ok := asFloat(value)
		if !ok || f < 0.1 || f > 5.0 {
			return fail("expected number in [0.1,5.0], got %v", value)
		}
		d.GifFrameDurationSeconds = f
	case "gif_optimization_level":
		s, ok := value.(string)
		if !ok || (s != "low" && s != "balanced" && s != "aggressive") {
			return fail("expected one of low|balanced|aggressive, got %v", value)
		}
		d.GifOptimizationLevel = s
	case "road_roi_points":
		pts, err := asPoints(value)
		if err != "" {
			return fail("%s", err)
		}
		d.RoadROIPoints = pts
	case "road_roi_enabled":
		b, ok := value.(bool)
		if !ok {
			return fail("expected boolean, got %v", value)
		}
		d.RoadROIEnabled = b
	default:
		return fail("unknown configuration key")
	}

	return nil
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func asInt(value interface{}) (int, bool) {
	f, ok := asFloat(value)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func asPoints(value interface{}) ([][2]float64, string) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, "expected a list of [x,y] pairs"
	}

	pts := make([][2]float64, 0, len(raw))
	for i, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, fmt.Sprintf("point %d is not an [x,y] pair", i)
		}
		x, okx := asFloat(pair[0])
		y, oky := asFloat(pair[1])
		if !okx || !oky || x < 0 || x > 1 || y < 0 || y > 1 {
			return nil, fmt.Sprintf("point %d coordinates must be in [0,1]", i)
		}
		pts = append(pts, [2]float64{x, y})
	}

	if len(pts) > 0 && (len(pts) < 4 || len(pts) > 12) {
		return nil, fmt.Sprintf("ROI polygon requires 4-12 points, got %d", len(pts))
	}

	return pts, ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
