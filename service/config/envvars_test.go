package config

import (
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) IService {
	t.Helper()
	t.Setenv("ANALYTICS_CONFIG_FILE", filepath.Join(t.TempDir(), "analytics_config.json"))
	return NewEnvVars()
}

func TestUpdateDynamicAppliesValidFields(t *testing.T) {
	svc := newTestService(t)

	updated, errs := svc.UpdateDynamic(map[string]interface{}{
		"snow_detection_threshold":         0.5,
		"sequence_update_interval_minutes": float64(10),
		"gif_optimization_level":           "aggressive",
	})
	if len(errs) > 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}

	if updated.SnowDetectionThreshold != 0.5 {
		t.Errorf("SnowDetectionThreshold = %v, want 0.5", updated.SnowDetectionThreshold)
	}
	if updated.SequenceUpdateMins != 10 {
		t.Errorf("SequenceUpdateMins = %v, want 10", updated.SequenceUpdateMins)
	}
	if updated.GifOptimizationLevel != "aggressive" {
		t.Errorf("GifOptimizationLevel = %v, want aggressive", updated.GifOptimizationLevel)
	}
	if updated.LastUpdated == "" {
		t.Error("LastUpdated should be stamped on a successful update")
	}
}

func TestUpdateDynamicRejectsWholesale(t *testing.T) {
	svc := newTestService(t)
	before := svc.Dynamic()

	_, errs := svc.UpdateDynamic(map[string]interface{}{
		"snow_detection_threshold": 0.5,  // valid
		"ice_warning_temperature":  -200, // out of range
	})
	if len(errs) != 1 {
		t.Fatalf("expected 1 field error, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "ice_warning_temperature" {
		t.Errorf("error names field %q, want ice_warning_temperature", errs[0].Field)
	}

	// The valid field must not have been applied either
	after := svc.Dynamic()
	if after.SnowDetectionThreshold != before.SnowDetectionThreshold {
		t.Errorf("partial update applied: threshold changed from %v to %v",
			before.SnowDetectionThreshold, after.SnowDetectionThreshold)
	}
}

func TestUpdateDynamicUnknownKey(t *testing.T) {
	svc := newTestService(t)

	_, errs := svc.UpdateDynamic(map[string]interface{}{
		"no_such_setting": true,
	})
	if len(errs) != 1 || errs[0].Field != "no_such_setting" {
		t.Fatalf("expected unknown-key error, got %v", errs)
	}
}

func TestUpdateDynamicROIRequiresPolygon(t *testing.T) {
	svc := newTestService(t)

	// Enabling the ROI with no points must fail
	_, errs := svc.UpdateDynamic(map[string]interface{}{
		"road_roi_enabled": true,
	})
	if len(errs) != 1 || errs[0].Field != "road_roi_points" {
		t.Fatalf("expected road_roi_points error, got %v", errs)
	}

	// Enabling it together with a valid polygon in the same request must pass
	_, errs = svc.UpdateDynamic(map[string]interface{}{
		"road_roi_enabled": true,
		"road_roi_points": []interface{}{
			[]interface{}{0.1, 0.7},
			[]interface{}{0.9, 0.7},
			[]interface{}{0.8, 0.9},
			[]interface{}{0.2, 0.9},
		},
	})
	if len(errs) > 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}
}

func TestUpdateDynamicRejectsOutOfBoundsPoints(t *testing.T) {
	svc := newTestService(t)

	_, errs := svc.UpdateDynamic(map[string]interface{}{
		"road_roi_points": []interface{}{
			[]interface{}{0.1, 0.7},
			[]interface{}{1.5, 0.7}, // out of [0,1]
			[]interface{}{0.8, 0.9},
			[]interface{}{0.2, 0.9},
		},
	})
	if len(errs) != 1 || errs[0].Field != "road_roi_points" {
		t.Fatalf("expected coordinate range error, got %v", errs)
	}
}

func TestResetDynamicRestoresDefaults(t *testing.T) {
	svc := newTestService(t)

	if _, errs := svc.UpdateDynamic(map[string]interface{}{
		"snow_detection_threshold": 0.9,
	}); len(errs) > 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}

	reset := svc.ResetDynamic()
	if reset.SnowDetectionThreshold != 0.7 {
		t.Errorf("SnowDetectionThreshold = %v after reset, want default 0.7", reset.SnowDetectionThreshold)
	}
}

func TestCaptureIntervalDerivation(t *testing.T) {
	svc := newTestService(t)

	// Defaults: 5 minutes / 10 images = 30 seconds between captures
	if got := svc.CaptureInterval(); got != 30.0 {
		t.Fatalf("CaptureInterval() = %v, want 30", got)
	}

	if _, errs := svc.UpdateDynamic(map[string]interface{}{
		"sequence_update_interval_minutes": float64(10),
		"max_images_per_sequence":          float64(20),
	}); len(errs) > 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}

	if got := svc.CaptureInterval(); got != 30.0 {
		t.Errorf("CaptureInterval() = %v, want 30", got)
	}

	if _, errs := svc.UpdateDynamic(map[string]interface{}{
		"max_images_per_sequence": float64(5),
	}); len(errs) > 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}

	if got := svc.CaptureInterval(); got != 120.0 {
		t.Errorf("CaptureInterval() = %v, want 120", got)
	}
}

func TestDynamicPersistsAcrossReload(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "analytics_config.json")
	t.Setenv("ANALYTICS_CONFIG_FILE", configFile)

	svc := NewEnvVars()
	if _, errs := svc.UpdateDynamic(map[string]interface{}{
		"weather_location_name": "Summit Pass",
	}); len(errs) > 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}

	fresh := NewEnvVars()
	if got := fresh.Dynamic().LocationName; got != "Summit Pass" {
		t.Errorf("LocationName after reload = %q, want Summit Pass", got)
	}
}
