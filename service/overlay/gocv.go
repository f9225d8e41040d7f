package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const (
	margin       = 20
	padding      = 10
	panelOpacity = 0.75
	barOpacity   = 0.65
)

var (
	white  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	black  = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	green  = color.RGBA{R: 76, G: 175, B: 80, A: 0}
	orange = color.RGBA{R: 255, G: 152, B: 0, A: 0}
	red    = color.RGBA{R: 244, G: 67, B: 54, A: 0}
)

type gocvService struct {
}

func NewGocv() IService {
	return &gocvService{}
}

func (svc *gocvService) Timestamp(frame []byte, ts time.Time, location string) []byte {
	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		lgr.Logger.Warn("timestamp overlay skipped, frame not decodable", slog.Any("error", err))
		return frame
	}
	defer img.Close()

	if img.Empty() {
		lgr.Logger.Warn("timestamp overlay skipped, frame not decodable")
		return frame
	}

	timeStr := displayTime(ts).Format("Monday, January 02, 2006  03:04 PM")

	scale := fontScaleFor(img.Cols())
	lineHeight := textHeight(scale) + padding

	drawTextBlock(&img, location, image.Pt(margin, margin), scale, white)
	drawTextBlock(&img, timeStr, image.Pt(margin, margin+lineHeight+5), scale, white)

	out, err := encodeJPEG(img)
	if err != nil {
		lgr.Logger.Warn("timestamp overlay encode failed", slog.Any("error", err))
		return frame
	}

	return out
}

func (svc *gocvService) Analytics(frame []byte, analysis *model.AnalysisResult, style string) []byte {
	if analysis == nil || style == "none" || style == "" {
		return frame
	}

	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		lgr.Logger.Warn("analytics overlay skipped, frame not decodable", slog.Any("error", err))
		return frame
	}
	defer img.Close()

	if img.Empty() {
		lgr.Logger.Warn("analytics overlay skipped, frame not decodable")
		return frame
	}

	switch style {
	case "minimal":
		drawMinimalBar(&img, analysis)
	default:
		drawFullPanel(&img, analysis)
	}

	out, err := encodeJPEG(img)
	if err != nil {
		lgr.Logger.Warn("analytics overlay encode failed", slog.Any("error", err))
		return frame
	}

	return out
}

// displayTime rounds down to the 5-minute boundary. Display stability only;
// stored filenames keep second precision.
func displayTime(ts time.Time) time.Time {
	rounded := (ts.Minute() / 5) * 5
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), rounded, 0, 0, ts.Location())
}

// drawMinimalBar renders a single semi-opaque strip along the bottom edge
// with the condition, temperature and snow depth.
func drawMinimalBar(img *gocv.Mat, analysis *model.AnalysisResult) {
	rows := img.Rows()
	cols := img.Cols()
	barHeight := rows / 12
	if barHeight < 40 {
		barHeight = 40
	}

	blendRect(img, image.Rect(0, rows-barHeight, cols, rows), barOpacity)

	scale := fontScaleFor(cols)
	baseline := rows - barHeight/2 + textHeight(scale)/2

	statusText := fmt.Sprintf("Road: %s", analysis.RoadStatus)
	tempText := fmt.Sprintf("%.0f F", analysis.Weather.Temperature)
	depthText := fmt.Sprintf("Snow: %.1f\"", analysis.Weather.SnowDepthInches)

	x := margin
	gocv.PutText(img, statusText, image.Pt(x, baseline), gocv.FontHersheySimplex, scale, statusColor(analysis.RoadStatus), 2)
	x += textWidth(statusText, scale) + 3*margin
	gocv.PutText(img, tempText, image.Pt(x, baseline), gocv.FontHersheySimplex, scale, white, 2)
	x += textWidth(tempText, scale) + 3*margin
	gocv.PutText(img, depthText, image.Pt(x, baseline), gocv.FontHersheySimplex, scale, white, 2)
}

// drawFullPanel renders the detailed analytics panel in the bottom-right
// corner: status, coverage fractions, weather and accumulation trend.
func drawFullPanel(img *gocv.Mat, analysis *model.AnalysisResult) {
	rows := img.Rows()
	cols := img.Cols()

	scale := fontScaleFor(cols)
	lineHeight := textHeight(scale) + padding

	lines := []struct {
		text  string
		color color.RGBA
	}{
		{"Snow Load Monitoring", white},
		{fmt.Sprintf("Status: %s", analysis.RoadStatus), statusColor(analysis.RoadStatus)},
		{fmt.Sprintf("Snow coverage: %.1f%%", analysis.SnowCoverage*100), white},
		{fmt.Sprintf("Snow depth: %.1f\"", analysis.Weather.SnowDepthInches), white},
		{fmt.Sprintf("Temperature: %.0f F", analysis.Weather.Temperature), white},
		{fmt.Sprintf("Conditions: %s", analysis.Weather.Conditions), white},
		{fmt.Sprintf("Accumulation: %+.1f\"/hr (%s)", analysis.Accumulation.RatePerHour, analysis.Accumulation.Trend), white},
		{fmt.Sprintf("Confidence: %.0f%%", analysis.Confidence*100), confidenceColor(analysis.Confidence)},
	}

	panelWidth := 0
	for _, line := range lines {
		if w := textWidth(line.text, scale); w > panelWidth {
			panelWidth = w
		}
	}
	panelWidth += 2 * padding
	panelHeight := len(lines)*lineHeight + 2*padding

	x0 := cols - panelWidth - margin
	y0 := rows - panelHeight - margin
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}

	blendRect(img, image.Rect(x0, y0, x0+panelWidth, y0+panelHeight), panelOpacity)

	y := y0 + padding + textHeight(scale)
	for _, line := range lines {
		gocv.PutText(img, line.text, image.Pt(x0+padding, y), gocv.FontHersheySimplex, scale, line.color, 2)
		y += lineHeight
	}
}

func drawTextBlock(img *gocv.Mat, text string, origin image.Point, scale float64, textColor color.RGBA) {
	w := textWidth(text, scale)
	h := textHeight(scale)

	rect := image.Rect(origin.X, origin.Y, origin.X+w+2*padding, origin.Y+h+2*padding)
	blendRect(img, rect, panelOpacity)

	gocv.PutText(img, text,
		image.Pt(origin.X+padding, origin.Y+padding+h),
		gocv.FontHersheySimplex, scale, textColor, 2)
}

// blendRect darkens a rectangle with the given opacity by blending a filled
// copy back onto the frame.
func blendRect(img *gocv.Mat, rect image.Rectangle, opacity float64) {
	shaded := img.Clone()
	defer shaded.Close()

	gocv.Rectangle(&shaded, rect, black, -1)
	gocv.AddWeighted(shaded, opacity, *img, 1-opacity, 0, img)
}

func statusColor(status model.RoadStatus) color.RGBA {
	switch status {
	case model.RoadClear:
		return green
	case model.RoadHazardous, model.RoadIcy:
		return red
	default:
		return orange
	}
}

func confidenceColor(confidence float64) color.RGBA {
	if confidence > 0.7 {
		return green
	}
	return orange
}

func fontScaleFor(cols int) float64 {
	scale := float64(cols) / 1920.0
	if scale < 0.5 {
		scale = 0.5
	}
	return scale
}

func textWidth(text string, scale float64) int {
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, scale, 2)
	return size.X
}

func textHeight(scale float64) int {
	size := gocv.GetTextSize("Ag", gocv.FontHersheySimplex, scale, 2)
	return size.Y
}

func encodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
