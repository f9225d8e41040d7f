package camera

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/lgr"
)

type rtspService struct {
	CfgSvc config.IService
}

// NewRtsp returns a frame source that opens the RTSP stream in-process and
// reads a single frame. Useful where ffmpeg is not installed; the ffmpeg
// source stays the default because it never holds a decoder open.
func NewRtsp(cfgsvc config.IService) IService {
	return &rtspService{
		CfgSvc: cfgsvc,
	}
}

func (svc *rtspService) Capture(ctx context.Context) (model.Frame, error) {
	timeout := time.Duration(svc.CfgSvc.GetCaptureTimeout()) * time.Second
	deadline := time.Now().Add(timeout)

	webcam, err := gocv.OpenVideoCapture(svc.CfgSvc.GetCameraURL())
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: error opening RTSP stream: %v", ErrCapture, err)
	}
	defer webcam.Close()

	img := gocv.NewMat()
	defer img.Close() // Crucial to close the image to avoid memory leaks

	for {
		select {
		case <-ctx.Done():
			return model.Frame{}, fmt.Errorf("%w: %v", ErrCapture, ctx.Err())
		default:
		}

		if time.Now().After(deadline) {
			return model.Frame{}, fmt.Errorf("%w: timeout after %s", ErrCapture, timeout)
		}

		if ok := webcam.Read(&img); !ok || img.Empty() {
			continue
		}

		break
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return model.Frame{}, fmt.Errorf("%w: error encoding frame: %v", ErrCapture, err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	frame := model.Frame{
		Data:      data,
		Timestamp: time.Now(),
		Source:    "rtsp",
	}

	lgr.Logger.Info("snapshot captured",
		slog.Int("sizeBytes", len(data)),
		slog.Time("timestamp", frame.Timestamp),
	)

	return frame, nil
}

func (svc *rtspService) TestConnection(ctx context.Context) bool {
	_, err := svc.Capture(ctx)
	if err != nil {
		lgr.Logger.Warn("camera connection test failed", slog.Any("error", err))
		return false
	}

	lgr.Logger.Info("camera connection test successful")
	return true
}

func (svc *rtspService) Info() model.CameraInfo {
	return model.CameraInfo{
		IP:         svc.CfgSvc.GetCameraIP(),
		Port:       svc.CfgSvc.GetCameraPort(),
		RtspPath:   svc.CfgSvc.GetCameraRtspPath(),
		Resolution: svc.CfgSvc.GetCameraResolution(),
		Username:   svc.CfgSvc.GetCameraUsername(),
	}
}
