package camera

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"gocv.io/x/gocv"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/lgr"
)

type ffmpegService struct {
	CfgSvc config.IService
}

// NewFFmpeg returns a frame source that shells out to ffmpeg for a single
// still grab. This isolates the one OS-specific dependency behind IService.
func NewFFmpeg(cfgsvc config.IService) IService {
	return &ffmpegService{
		CfgSvc: cfgsvc,
	}
}

func (svc *ffmpegService) Capture(ctx context.Context) (model.Frame, error) {
	timeout := time.Duration(svc.CfgSvc.GetCaptureTimeout()) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tmp, err := os.CreateTemp("", "snowcam_frame_*.jpg")
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: temp file: %v", ErrCapture, err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	// Guaranteed cleanup on every path, success included: the caller owns the
	// bytes, not the temp file.
	defer os.Remove(tmpName)

	args := []string{
		"-rtsp_transport", "tcp",
		"-i", svc.CfgSvc.GetCameraURL(),
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"-y", tmpName,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return model.Frame{}, fmt.Errorf("%w: timeout after %s", ErrCapture, timeout)
		}
		return model.Frame{}, fmt.Errorf("%w: ffmpeg: %v: %s", ErrCapture, err, lastLine(stderr.String()))
	}

	data, err := os.ReadFile(tmpName)
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: reading grab: %v", ErrCapture, err)
	}

	if len(data) == 0 {
		return model.Frame{}, fmt.Errorf("%w: empty image data received", ErrCapture)
	}

	if err := validateImage(data); err != nil {
		return model.Frame{}, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	frame := model.Frame{
		Data:      data,
		Timestamp: time.Now(),
		Source:    "ffmpeg",
	}

	lgr.Logger.Info("snapshot captured",
		slog.Int("sizeBytes", len(data)),
		slog.Time("timestamp", frame.Timestamp),
	)

	return frame, nil
}

func (svc *ffmpegService) TestConnection(ctx context.Context) bool {
	_, err := svc.Capture(ctx)
	if err != nil {
		lgr.Logger.Warn("camera connection test failed", slog.Any("error", err))
		return false
	}

	lgr.Logger.Info("camera connection test successful")
	return true
}

func (svc *ffmpegService) Info() model.CameraInfo {
	return model.CameraInfo{
		IP:         svc.CfgSvc.GetCameraIP(),
		Port:       svc.CfgSvc.GetCameraPort(),
		RtspPath:   svc.CfgSvc.GetCameraRtspPath(),
		Resolution: svc.CfgSvc.GetCameraResolution(),
		Username:   svc.CfgSvc.GetCameraUsername(),
	}
}

func validateImage(data []byte) error {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("invalid image data: %v", err)
	}
	defer img.Close()

	if img.Empty() {
		return fmt.Errorf("invalid image data: decoded empty")
	}

	return nil
}

func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(lines[len(lines)-1])
}
