package pipeline

import (
	"github.com/woodlandhills/snowcam/service/analytics"
	"github.com/woodlandhills/snowcam/service/camera"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/data"
	"github.com/woodlandhills/snowcam/service/mirror"
	"github.com/woodlandhills/snowcam/service/overlay"
	"github.com/woodlandhills/snowcam/service/sequence"
	"github.com/woodlandhills/snowcam/service/storage"
	"github.com/woodlandhills/snowcam/service/weather"
)

// ServicesFactory carries all the services the orchestrator needs.
// They can be overridden with different implementations (tests use fakes).
type ServicesFactory struct {
	CfgSvc       config.IService
	CameraSvc    camera.IService
	WeatherSvc   weather.IService
	AnalyticsSvc analytics.IService
	OverlaySvc   overlay.IService
	SequenceSvc  sequence.IService
	StorageSvc   storage.IService
	MirrorSvc    mirror.IService
	DataSvc      data.IService
}
