package sequence

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"log/slog"
	"os"
	"time"

	"gocv.io/x/gocv"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/lgr"
)

// All sequences are normalized to this resolution before encoding so
// mixed-resolution input can never corrupt the output.
const (
	outputWidth  = 1280
	outputHeight = 720
)

type gifService struct {
}

func NewGif() IService {
	return &gifService{}
}

func (svc *gifService) Assemble(frames []model.Frame, targetPath string, perFrameDuration float64, optimizationLevel string) (model.SequenceInfo, error) {
	if len(frames) == 0 {
		return model.SequenceInfo{}, ErrNoFrames
	}

	colors := paletteSize(optimizationLevel)
	// GIF delay unit is hundredths of a second
	delay := int(perFrameDuration * 100)
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	skipped := 0

	for _, frame := range frames {
		paletted, err := palettedFrame(frame.Data, colors)
		if err != nil {
			skipped++
			lgr.Logger.Warn("skipping frame that failed to load",
				slog.Time("timestamp", frame.Timestamp),
				slog.Any("error", err),
			)
			continue
		}

		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
	}

	if len(anim.Image) == 0 {
		return model.SequenceInfo{}, fmt.Errorf("%w: all %d frames failed to load", ErrNoFrames, len(frames))
	}

	// Write-then-rename so readers globbing the sequences folder never see a
	// partially written artifact.
	tmpPath := targetPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return model.SequenceInfo{}, fmt.Errorf("error creating sequence file: %w", err)
	}

	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return model.SequenceInfo{}, fmt.Errorf("error encoding sequence: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return model.SequenceInfo{}, fmt.Errorf("error closing sequence file: %w", err)
	}

	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return model.SequenceInfo{}, fmt.Errorf("error publishing sequence file: %w", err)
	}

	info := model.SequenceInfo{
		Path:       targetPath,
		FrameCount: len(anim.Image),
		CreatedAt:  time.Now(),
	}
	if st, err := os.Stat(targetPath); err == nil {
		info.SizeBytes = st.Size()
	}

	lgr.Logger.Info("image sequence created",
		slog.Int("frames", info.FrameCount),
		slog.Int("skipped", skipped),
		slog.Int("delayCs", delay),
		slog.String("optimization", optimizationLevel),
		slog.String("path", targetPath),
		slog.Int64("sizeBytes", info.SizeBytes),
	)

	return info, nil
}

// palettedFrame decodes one frame, resizes it to the output resolution and
// quantizes it with Floyd-Steinberg dithering.
func palettedFrame(data []byte, colors int) (*image.Paletted, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded empty frame")
	}

	resized := gocv.NewMat()
	defer resized.Close()
	if mat.Cols() != outputWidth || mat.Rows() != outputHeight {
		gocv.Resize(mat, &resized, image.Pt(outputWidth, outputHeight), 0, 0, gocv.InterpolationLinear)
	} else {
		mat.CopyTo(&resized)
	}

	img, err := resized.ToImage()
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9[:colors])
	draw.FloydSteinberg.Draw(paletted, bounds, img, image.Point{})

	return paletted, nil
}

// Quality/size tradeoff: fewer palette colors shrink the artifact at the
// cost of banding.
func paletteSize(level string) int {
	switch level {
	case "aggressive":
		return 128
	case "low":
		return 256
	default: // balanced
		return 192
	}
}
