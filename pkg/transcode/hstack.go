package transcode

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/audio"
)

// HStackRequest describes a set of videos that should be cut to their
// start times and stacked left-to-right into one video.
type HStackRequest struct {
	Videos []string
	// StartTimes are seconds to skip at the beginning of each video.
	StartTimes []float64
	// Audio is optional; if set, it becomes the audio track of the output.
	Audio  string
	Output string
}

// FormatTimestamp formats seconds as HH:MM:SS.ffffff.
func FormatTimestamp(seconds float64) string {
	us := int64(math.Round(max(seconds, 0) * 1e6))
	return fmt.Sprintf("%02d:%02d:%02d.%06d",
		us/3600e6, us/60e6%60, us/1e6%60, us%1e6)
}

// HStackArgs builds the ffmpeg arguments for the request. All the
// cutting and stacking happens in one invocation.
func (t *Transcoder) HStackArgs(req HStackRequest) ([]string, error) {
	if err := audio.CheckTrackCount("stacking videos", 2, len(req.Videos)); err != nil {
		return nil, err
	}
	if len(req.StartTimes) != len(req.Videos) {
		return nil, fmt.Errorf("got %d start times for %d videos", len(req.StartTimes), len(req.Videos))
	}
	if req.Output == "" {
		return nil, fmt.Errorf("the output path is not set")
	}

	args := []string{"-y"}
	for i, video := range req.Videos {
		args = append(args, "-ss", FormatTimestamp(req.StartTimes[i]), "-i", video)
	}
	if req.Audio != "" {
		args = append(args, "-i", req.Audio)
	}

	var filter strings.Builder
	for i := range req.Videos {
		fmt.Fprintf(&filter, "[%d:v]", i)
	}
	fmt.Fprintf(&filter, "hstack=inputs=%d:shortest=1[v]", len(req.Videos))
	args = append(args, "-filter_complex", filter.String(), "-map", "[v]", "-c:v", t.Config.VideoCodec)
	if req.Audio != "" {
		// the audio is the input right after the videos
		args = append(args, "-map", fmt.Sprintf("%d:a", len(req.Videos)), "-c:a", t.Config.AudioCodec)
	}
	return append(args, req.Output), nil
}

func (t *Transcoder) HStack(
	ctx context.Context,
	req HStackRequest,
) error {
	args, err := t.HStackArgs(req)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "stacking %d videos into '%s'", len(req.Videos), req.Output)
	err = t.Runner.Run(ctx, Command{
		Name: t.Config.FFmpegPath,
		Args: args,
	})
	if err != nil {
		return fmt.Errorf("unable to stack the videos into '%s': %w", req.Output, err)
	}
	return nil
}
