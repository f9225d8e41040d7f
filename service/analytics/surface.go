package analytics

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const maxHistory = 100

// HSV thresholds (OpenCV hue range 0-180). Snow is bright and desaturated,
// ice is a narrower bright low-saturation band, wet is darker mid-saturation.
var (
	snowLower = gocv.NewScalar(0, 0, 200, 0)
	snowUpper = gocv.NewScalar(180, 30, 255, 0)
	wetLower  = gocv.NewScalar(0, 20, 40, 0)
	wetUpper  = gocv.NewScalar(180, 100, 150, 0)
	iceLower  = gocv.NewScalar(0, 0, 180, 0)
	iceUpper  = gocv.NewScalar(180, 15, 220, 0)
)

// Default ROI when no custom polygon is configured: a trapezoid over the
// lower-middle of the frame where the road usually sits.
var defaultROI = [][2]float64{
	{0.1, 0.7},
	{0.9, 0.7},
	{0.8, 0.9},
	{0.2, 0.9},
}

type surfaceService struct {
	lock    sync.RWMutex
	history []model.AnalysisResult
}

func NewSurface() IService {
	return &surfaceService{}
}

func (svc *surfaceService) Analyze(frame model.Frame, roi model.ROI, weather model.WeatherSnapshot) (result model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			lgr.Logger.Error("road surface analysis panicked",
				slog.Any("panic", r),
			)
			result = svc.unknownResult(frame, weather)
		}
	}()

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		lgr.Logger.Error("road surface analysis failed",
			slog.Any("error", err),
		)
		return svc.unknownResult(frame, weather)
	}
	defer img.Close()

	if img.Empty() {
		lgr.Logger.Error("road surface analysis failed, frame not decodable")
		return svc.unknownResult(frame, weather)
	}

	mask := roadMask(img, roi)
	defer mask.Close()

	snow, wet, ice, brightness, roadPixels := measureCoverage(img, mask)

	condition := ClassifySurface(snow, wet, ice, brightness)

	svc.lock.RLock()
	history := append([]model.AnalysisResult{}, svc.history...)
	svc.lock.RUnlock()

	result = model.AnalysisResult{
		Timestamp:        frame.Timestamp,
		SnowCoverage:     snow,
		WetCoverage:      wet,
		IceCoverage:      ice,
		RoadBrightness:   brightness,
		RoadPixels:       roadPixels,
		SurfaceCondition: condition,
		Confidence:       Confidence(snow, wet, ice),
		Weather:          weather,
		Accumulation:     accumulationRate(weather, history),
		Predictions:      generatePredictions(weather),
		RoadStatus: DetermineRoadStatus(
			condition, snow, wet, ice,
			weather.Temperature, weather.SnowDepthInches,
		),
	}

	svc.remember(result)

	lgr.Logger.Info("image analysis completed",
		slog.String("surfaceCondition", string(condition)),
		slog.String("roadStatus", string(result.RoadStatus)),
		slog.Float64("snowCoverage", snow),
		slog.Float64("temperature", weather.Temperature),
	)

	return result
}

func (svc *surfaceService) Latest() *model.AnalysisResult {
	svc.lock.RLock()
	defer svc.lock.RUnlock()

	if len(svc.history) == 0 {
		return nil
	}

	latest := svc.history[len(svc.history)-1]
	return &latest
}

func (svc *surfaceService) History(max int) []model.AnalysisResult {
	svc.lock.RLock()
	defer svc.lock.RUnlock()

	n := len(svc.history)
	if max > 0 && n > max {
		n = max
	}

	out := make([]model.AnalysisResult, n)
	copy(out, svc.history[len(svc.history)-n:])
	return out
}

func (svc *surfaceService) remember(result model.AnalysisResult) {
	svc.lock.Lock()
	defer svc.lock.Unlock()

	svc.history = append(svc.history, result)
	if len(svc.history) > maxHistory {
		svc.history = svc.history[len(svc.history)-maxHistory:]
	}
}

func (svc *surfaceService) unknownResult(frame model.Frame, weather model.WeatherSnapshot) model.AnalysisResult {
	result := model.AnalysisResult{
		Timestamp:        frame.Timestamp,
		SurfaceCondition: model.SurfaceUnknown,
		Weather:          weather,
	}
	svc.remember(result)
	return result
}

// roadMask rasterizes the ROI polygon (or the default trapezoid) into a
// binary mask matching the frame dimensions.
func roadMask(img gocv.Mat, roi model.ROI) gocv.Mat {
	rows := img.Rows()
	cols := img.Cols()

	points := defaultROI
	if roi.Enabled && len(roi.Points) >= 4 {
		points = roi.Points
	}

	poly := make([]image.Point, len(points))
	for i, p := range points {
		poly[i] = image.Pt(
			int(math.Round(p[0]*float64(cols))),
			int(math.Round(p[1]*float64(rows))),
		)
	}

	mask := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pv.Close()
	gocv.FillPoly(&mask, pv, color.RGBA{R: 255, G: 255, B: 255, A: 0})

	return mask
}

// measureCoverage computes the per-class coverage fractions and the mean
// road brightness inside the mask. An empty mask yields all zeros.
func measureCoverage(img, mask gocv.Mat) (snow, wet, ice, brightness float64, roadPixels int) {
	roadPixels = gocv.CountNonZero(mask)
	if roadPixels == 0 {
		return 0, 0, 0, 0, 0
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	snow = classCoverage(hsv, mask, snowLower, snowUpper, roadPixels)
	wet = classCoverage(hsv, mask, wetLower, wetUpper, roadPixels)
	ice = classCoverage(hsv, mask, iceLower, iceUpper, roadPixels)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	brightness = math.Round(gray.MeanWithMask(mask).Val1*10) / 10

	return snow, wet, ice, brightness, roadPixels
}

func classCoverage(hsv, mask gocv.Mat, lower, upper gocv.Scalar, roadPixels int) float64 {
	classMask := gocv.NewMat()
	defer classMask.Close()
	gocv.InRangeWithScalar(hsv, lower, upper, &classMask)

	masked := gocv.NewMat()
	defer masked.Close()
	gocv.BitwiseAnd(classMask, mask, &masked)

	coverage := float64(gocv.CountNonZero(masked)) / float64(roadPixels)
	return math.Round(coverage*1000) / 1000
}
