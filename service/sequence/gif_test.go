package sequence

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/woodlandhills/snowcam/model"
)

func jpegFrame(t *testing.T, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for y := 0; y < 180; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test frame: %v", err)
	}
	return buf.Bytes()
}

func TestAssembleProducesAnimatedGif(t *testing.T) {
	svc := NewGif()
	target := filepath.Join(t.TempDir(), "sequence_20260115_073000.gif")

	frames := []model.Frame{
		{Data: jpegFrame(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}), Timestamp: time.Now().Add(-2 * time.Minute)},
		{Data: jpegFrame(t, color.RGBA{R: 100, G: 100, B: 100, A: 255}), Timestamp: time.Now().Add(-1 * time.Minute)},
		{Data: jpegFrame(t, color.RGBA{R: 50, G: 50, B: 50, A: 255}), Timestamp: time.Now()},
	}

	info, err := svc.Assemble(frames, target, 1.0, "balanced")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if info.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", info.FrameCount)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", info.SizeBytes)
	}

	f, err := os.Open(target)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Errorf("decoded %d frames, want 3", len(anim.Image))
	}
	if anim.LoopCount != 0 {
		t.Errorf("LoopCount = %d, want 0 (loop forever)", anim.LoopCount)
	}
	for i, delay := range anim.Delay {
		if delay != 100 {
			t.Errorf("frame %d delay = %d, want 100 (1.0s)", i, delay)
		}
	}
	for i, img := range anim.Image {
		b := img.Bounds()
		if b.Dx() != outputWidth || b.Dy() != outputHeight {
			t.Errorf("frame %d is %dx%d, want %dx%d", i, b.Dx(), b.Dy(), outputWidth, outputHeight)
		}
	}

	if _, err := os.Stat(target + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after publish")
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	svc := NewGif()
	target := filepath.Join(t.TempDir(), "sequence.gif")

	_, err := svc.Assemble(nil, target, 1.0, "balanced")
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames, got %v", err)
	}

	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Error("output file created despite empty input")
	}
}

func TestAssembleSkipsCorruptFrames(t *testing.T) {
	svc := NewGif()
	target := filepath.Join(t.TempDir(), "sequence.gif")

	frames := []model.Frame{
		{Data: []byte("not a jpeg"), Timestamp: time.Now().Add(-time.Minute)},
		{Data: jpegFrame(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}), Timestamp: time.Now()},
	}

	info, err := svc.Assemble(frames, target, 0.5, "balanced")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if info.FrameCount != 1 {
		t.Errorf("FrameCount = %d, want 1 (corrupt frame skipped)", info.FrameCount)
	}
}

func TestAssembleAllCorrupt(t *testing.T) {
	svc := NewGif()
	target := filepath.Join(t.TempDir(), "sequence.gif")

	frames := []model.Frame{
		{Data: []byte("junk"), Timestamp: time.Now()},
	}

	_, err := svc.Assemble(frames, target, 1.0, "balanced")
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames when every frame fails, got %v", err)
	}
}

func TestPaletteSize(t *testing.T) {
	tests := []struct {
		level    string
		expected int
	}{
		{level: "low", expected: 256},
		{level: "balanced", expected: 192},
		{level: "aggressive", expected: 128},
		{level: "bogus", expected: 192},
	}

	for _, tt := range tests {
		if got := paletteSize(tt.level); got != tt.expected {
			t.Errorf("paletteSize(%q) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}
