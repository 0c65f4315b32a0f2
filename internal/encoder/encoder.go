package encoder

import (
	"context"
	"errors"
)

// FrameSize is the output resolution of an extracted frame.
type FrameSize struct {
	Width  int
	Height int
}

// ThumbnailSize is the resolution used for video thumbnails.
var ThumbnailSize = FrameSize{Width: 800, Height: 450}

// Frame is the result of extracting one still image.
type Frame struct {
	// Index is the position of the requested timestamp.
	Index int
	// Timestamp is the offset into the video in seconds.
	Timestamp float64
	// Data holds the JPEG bytes; nil when Err is set.
	Data []byte
	// Err is the per-frame failure, if any.
	Err error
}

// OK reports whether the frame was produced.
func (f Frame) OK() bool {
	return f.Err == nil && len(f.Data) > 0
}

var (
	// ErrNoFrames is returned when no requested frame could be extracted.
	ErrNoFrames = errors.New("no frames extracted")

	// ErrInvalidDuration is returned when probe output has no usable duration.
	ErrInvalidDuration = errors.New("probe returned no usable duration")
)

// Encoder wraps an external media tool.
// Every call is bounded by the context and by the implementation's timeout.
type Encoder interface {
	// Probe reads the container duration of inputPath in seconds.
	Probe(ctx context.Context, inputPath string) (float64, error)

	// ExtractFrames grabs one JPEG per timestamp, scaled to size.
	// Intermediate files are written to outputDir and removed as soon as
	// they are read. The returned slice has one entry per timestamp;
	// a non-nil error means no frame at all could be produced.
	ExtractFrames(ctx context.Context, inputPath, outputDir string, timestamps []float64, size FrameSize) ([]Frame, error)
}
