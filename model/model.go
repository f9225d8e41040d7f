package model

import (
	"fmt"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	return e.Message
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Frame is a single still image captured from the feed. Immutable once created.
type Frame struct {
	Data      []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type CameraInfo struct {
	IP         string `json:"ip"`
	Port       int    `json:"port"`
	RtspPath   string `json:"rtspPath"`
	Resolution string `json:"resolution"`
	Username   string `json:"username"`
	// Password deliberately omitted
}

type WeatherSnapshot struct {
	Temperature       float64   `json:"temperature"` // Fahrenheit
	Humidity          float64   `json:"humidity"`
	Conditions        string    `json:"conditions"`
	PrecipitationRate float64   `json:"precipitationRate"` // inches/hr liquid
	SnowDepthInches   float64   `json:"snowDepthInches"`
	SnowAccum1Hr      float64   `json:"snowAccumulation1hr"`
	SnowAccum3Hr      float64   `json:"snowAccumulation3hr"`
	SnowAccum6Hr      float64   `json:"snowAccumulation6hr"`
	WindSpeed         float64   `json:"windSpeed"`
	WindDirection     string    `json:"windDirection"`
	Timestamp         time.Time `json:"timestamp"`
	Source            string    `json:"source"`
}

type SurfaceCondition string

const (
	SurfaceSnowCovered SurfaceCondition = "snow_covered"
	SurfacePartialSnow SurfaceCondition = "partial_snow"
	SurfaceIcy         SurfaceCondition = "icy"
	SurfaceWet         SurfaceCondition = "wet"
	SurfaceDamp        SurfaceCondition = "damp"
	SurfaceCleanDry    SurfaceCondition = "clean_dry"
	SurfaceDry         SurfaceCondition = "dry"
	SurfaceUnknown     SurfaceCondition = "unknown"
)

type RoadStatus string

const (
	RoadClear       RoadStatus = "Clear"
	RoadDamp        RoadStatus = "Damp"
	RoadWet         RoadStatus = "Wet"
	RoadWetIceRisk  RoadStatus = "Wet - Ice Risk"
	RoadFreezing    RoadStatus = "Freezing Conditions"
	RoadSlippery    RoadStatus = "Slippery"
	RoadIcy         RoadStatus = "Icy - Hazardous"
	RoadIcePossible RoadStatus = "Ice Possible"
	RoadHazardous   RoadStatus = "Hazardous"
)

// ROI restricts analysis to the road area. Coordinates are normalized [0,1].
type ROI struct {
	Enabled bool         `json:"enabled"`
	Points  [][2]float64 `json:"points"`
}

type AccumulationRate struct {
	RatePerHour float64 `json:"ratePerHour"`
	Trend       string  `json:"trend"` // increasing | stable | decreasing
	Accum1Hr    float64 `json:"accumulation1hr"`
	Accum3Hr    float64 `json:"accumulation3hr"`
	Accum6Hr    float64 `json:"accumulation6hr"`
	Source      string  `json:"source"`
}

type Prediction struct {
	SnowDepth    float64 `json:"snowDepth"`
	IceRisk      string  `json:"iceRisk"` // low | medium | high | unknown
	Accumulation float64 `json:"accumulation"`
}

// AnalysisResult is derived from one frame. Never mutated after creation.
type AnalysisResult struct {
	Timestamp        time.Time             `json:"timestamp"`
	SnowCoverage     float64               `json:"snowCoverage"`
	WetCoverage      float64               `json:"wetCoverage"`
	IceCoverage      float64               `json:"iceCoverage"`
	RoadBrightness   float64               `json:"roadBrightness"`
	RoadPixels       int                   `json:"roadPixels"`
	SurfaceCondition SurfaceCondition      `json:"surfaceCondition"`
	Confidence       float64               `json:"confidence"`
	Weather          WeatherSnapshot       `json:"weather"`
	Accumulation     AccumulationRate      `json:"accumulationRate"`
	Predictions      map[string]Prediction `json:"predictions"`
	RoadStatus       RoadStatus            `json:"roadStatus"`
}

type SequenceInfo struct {
	Path       string    `json:"path"`
	FrameCount int       `json:"frameCount"`
	CreatedAt  time.Time `json:"createdAt"`
	SizeBytes  int64     `json:"sizeBytes"`
}

type StorageUsage struct {
	FramesSizeMB    float64 `json:"framesSizeMb"`
	SequencesSizeMB float64 `json:"sequencesSizeMb"`
	TotalSizeMB     float64 `json:"totalSizeMb"`
	MaxStorageMB    int     `json:"maxStorageMb"`
	UsagePercent    float64 `json:"usagePercent"`
	FrameCount      int     `json:"frameCount"`
	SequenceCount   int     `json:"sequenceCount"`
}

type CaptureStats struct {
	RunID      string `json:"runId"`
	Captures   int    `json:"captures"`
	Failures   int    `json:"failures"`
	Sequences  int    `json:"sequences"`
	Uptime     int64  `json:"uptime"`
	LastStatus string `json:"lastStatus"`
	Timestamp  int64  `json:"timestamp"`
}

type SequenceStats struct {
	JobID     string  `json:"jobId"`
	Frames    int     `json:"frames"`
	SizeKB    float64 `json:"sizeKb"`
	ProcTime  float64 `json:"procTime"`
	Timestamp int64   `json:"timestamp"`
}

type StatusReport struct {
	IsRunning          bool            `json:"isRunning"`
	LastSequenceUpdate *time.Time      `json:"lastSequenceUpdate"`
	CameraInfo         CameraInfo      `json:"cameraInfo"`
	StorageUsage       StorageUsage    `json:"storageUsage"`
	LatestSequence     string          `json:"latestSequence"`
	LatestAnalysis     *AnalysisResult `json:"latestAnalysis,omitempty"`
	MirrorEnabled      bool            `json:"mirrorEnabled"`
}
