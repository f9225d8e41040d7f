package lgr

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Logger is the process-wide structured logger. JSON records go to stdout and
// to a rotating file so the pipeline history survives restarts.
var Logger *slog.Logger

// Tracer is a no-op tracer until an OTEL exporter is wired in. Spans are
// started around capture cycles and sequence jobs so the call sites are ready.
var Tracer trace.Tracer

var fileSink = &lumberjack.Logger{
	Filename:   logFilename(),
	MaxSize:    10, // MB
	MaxBackups: 5,
	MaxAge:     7,    // days
	Compress:   true, // compress old logs
}

func init() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	Logger = slog.New(slog.NewJSONHandler(
		io.MultiWriter(os.Stdout, fileSink),
		&slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr},
	))

	Tracer = noop.NewTracerProvider().Tracer("snowcam")
}

// replaceAttr expands error attributes that carry a stack trace into a
// structured group so the trace survives JSON encoding.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok {
			a.Value = errValue(err)
		}
	}
	return a
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func errValue(err error) slog.Value {
	attrs := []slog.Attr{slog.String("msg", err.Error())}

	if trace := xerrors.StackTrace(err); len(trace) > 0 {
		frames := trace.Frames()
		stack := make([]stackFrame, len(frames))
		for i, f := range frames {
			stack[i] = stackFrame{
				Func:   filepath.Base(f.Function),
				Source: filepath.Join(filepath.Base(filepath.Dir(f.File)), filepath.Base(f.File)),
				Line:   f.Line,
			}
		}
		attrs = append(attrs, slog.Any("trace", stack))
	}

	return slog.GroupValue(attrs...)
}

func logFilename() string {
	if fn := os.Getenv("LOG_FILE"); fn != "" {
		return fn
	}
	return "snowcam.log"
}

// Banner prints a colored startup line to the console only.
func Banner(format string, args ...interface{}) {
	c := color.New(color.FgCyan, color.Bold)
	c.Println(fmt.Sprintf(format, args...))
}

// Okf and Failf are used by the probe mode for human-readable diagnostics.
func Okf(format string, args ...interface{}) {
	color.Green("  ok  "+format, args...)
}

func Failf(format string, args ...interface{}) {
	color.Red("  FAIL "+format, args...)
}
