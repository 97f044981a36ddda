package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"
)

// ErrNoDuration is returned when ffprobe reports no usable length.
var ErrNoDuration = errors.New("no duration in ffprobe output")

// FFprobe reads module lengths with the ffprobe binary.
type FFprobe struct {
	path   string
	logger zerolog.Logger
}

func NewFFprobe(logger zerolog.Logger) *FFprobe {
	path := "ffprobe"
	if p, err := exec.LookPath(path); err == nil {
		path = p
	}
	return &FFprobe{path: path, logger: logger}
}

func (f *FFprobe) IsAvailable() bool {
	_, err := exec.LookPath(f.path)
	return err == nil
}

// Duration returns the length of the file at path in whole seconds.
func (f *FFprobe) Duration(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, f.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_entries", "format=duration:stream=duration",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		f.logger.Debug().Err(err).Str("file", path).Msg("ffprobe failed")
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(out)
}

type durationOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Duration string `json:"duration"`
	} `json:"streams"`
}

// parseDuration takes the container duration, falling back to the longest
// stream for containers that do not carry one. The result is rounded to
// the nearest second.
func parseDuration(out []byte) (int64, error) {
	var probe durationOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, err
	}

	seconds := parseSeconds(probe.Format.Duration)
	if seconds <= 0 {
		for _, s := range probe.Streams {
			seconds = math.Max(seconds, parseSeconds(s.Duration))
		}
	}
	if seconds <= 0 {
		return 0, ErrNoDuration
	}
	return int64(math.Round(seconds)), nil
}

func parseSeconds(v string) float64 {
	if v == "" || v == "N/A" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
