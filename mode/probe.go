package mode

import (
	"context"

	"github.com/woodlandhills/snowcam/pipeline"
	"github.com/woodlandhills/snowcam/service/lgr"
)

// The probe mode runs one-shot diagnostics against the camera, the weather
// provider and the mirror host, then exits. Useful for field installs.
func Probe(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	lgr.Banner("snowcam probe")

	dyn := svcs.CfgSvc.Dynamic()

	info := svcs.CameraSvc.Info()
	if svcs.CameraSvc.TestConnection(canxCtx) {
		lgr.Okf("camera %s:%d reachable", info.IP, info.Port)
	} else {
		lgr.Failf("camera %s:%d unreachable", info.IP, info.Port)
	}

	wx := svcs.WeatherSvc.Current(canxCtx, dyn.WeatherLatitude, dyn.WeatherLongitude)
	if wx.Source == "fallback" {
		lgr.Failf("weather provider unreachable, fallback in effect (%.0fF, %s)", wx.Temperature, wx.Conditions)
	} else {
		lgr.Okf("weather for %s: %.0fF, %s", dyn.LocationName, wx.Temperature, wx.Conditions)
	}

	if !svcs.MirrorSvc.Enabled() {
		lgr.Okf("mirror disabled")
	} else if svcs.MirrorSvc.TestConnection(canxCtx) {
		lgr.Okf("mirror host reachable")
	} else {
		lgr.Failf("mirror host unreachable")
	}

	usage := svcs.StorageSvc.Usage()
	lgr.Okf("storage %.1f/%d MB (%.1f%%), %d frames, %d sequences",
		usage.TotalSizeMB, usage.MaxStorageMB, usage.UsagePercent,
		usage.FrameCount, usage.SequenceCount)

	return nil
}
