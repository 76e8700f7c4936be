package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/artifact"
	"github.com/xaionaro-go/avsync/pkg/audio"
)

// PoseFileName is the name of the synchronized pose of the idx-th source.
func PoseFileName(idx int) string {
	return fmt.Sprintf("pose%d.csv", idx)
}

func PoseFilePaths(outputDir string, count int) []string {
	paths := make([]string, count)
	for i := range paths {
		paths[i] = filepath.Join(outputDir, PoseFileName(i))
	}
	return paths
}

// SyncPoses puts every input pose onto the shared timeline (see
// Pose.Rebase) and writes it to outputDir as pose{i}.csv.
//
// starts[i] is the position (seconds) within the i-th source where the
// shared timeline begins and lastTime is its duration, usually the
// duration of the mixed audio.
func SyncPoses(
	ctx context.Context,
	inputs []string,
	starts []float64,
	lastTime float64,
	outputDir string,
) (_ret []string, _err error) {
	logger.Tracef(ctx, "SyncPoses(ctx, %v, %v, %v, '%s')", inputs, starts, lastTime, outputDir)
	defer func() { logger.Tracef(ctx, "/SyncPoses(ctx, %v, %v, %v, '%s'): %v", inputs, starts, lastTime, outputDir, _err) }()

	if len(starts) != len(inputs) {
		return nil, &audio.ShapeMismatchError{
			Operation: "pose sync: start times",
			Expected:  len(inputs),
			Got:       len(starts),
		}
	}
	if lastTime < 0 {
		return nil, fmt.Errorf("negative duration of the shared timeline: %v", lastTime)
	}

	outputs := PoseFilePaths(outputDir, len(inputs))
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pose, err := LoadPoseFile(input)
		if err != nil {
			return nil, err
		}
		synced := pose.Rebase(starts[i], lastTime)
		logger.Debugf(ctx, "pose '%s': kept %d of %d rows (%.3fs of %.3fs)",
			input, len(synced.Rows), len(pose.Rows), synced.Duration(), pose.Duration())
		err = artifact.WriteFile(outputs[i], func(f *os.File) error {
			return WritePose(f, synced)
		})
		if err != nil {
			return nil, fmt.Errorf("unable to write '%s': %w", outputs[i], err)
		}
	}
	return outputs, nil
}
