// Package gate decides which outputs of a session have to be (re)built.
package gate

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/avsync/pkg/artifact"
	"github.com/xaionaro-go/avsync/pkg/audio/audiofile"
	"github.com/xaionaro-go/avsync/pkg/offsets"
)

type State int

const (
	NotStarted = State(iota)
	PartiallyComplete
	Complete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case PartiallyComplete:
		return "partially_complete"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

type LagSource int

const (
	// LagSourceNone means nothing needs the lags.
	LagSourceNone = LagSource(iota)

	// LagSourceRecompute means the lags have to be estimated from audio.
	LagSourceRecompute

	// LagSourceReload means the lags are taken from the offsets record.
	LagSourceReload
)

func (s LagSource) String() string {
	switch s {
	case LagSourceNone:
		return "none"
	case LagSourceRecompute:
		return "recompute"
	case LagSourceReload:
		return "reload"
	default:
		return fmt.Sprintf("unknown_lag_source_%d", int(s))
	}
}

// Outputs describes where the artifacts of a session are expected.
// An empty path (or no pose paths) means the session does not produce
// the artifact; such an artifact is considered Complete.
type Outputs struct {
	Audio   string
	Video   string
	Poses   []string
	Offsets string
	Sources []string
}

type Plan struct {
	Audio State
	Video State
	Pose  State

	LagSource LagSource

	// Offsets is set if LagSource is LagSourceReload.
	Offsets offsets.Record
}

func (p *Plan) NeedsAudio() bool { return p.Audio != Complete }
func (p *Plan) NeedsVideo() bool { return p.Video != Complete }
func (p *Plan) NeedsPose() bool { return p.Pose != Complete }

// Done reports whether nothing has to be done.
func (p *Plan) Done() bool {
	return !p.NeedsAudio() && !p.NeedsVideo() && !p.NeedsPose()
}

func audioState(path string) State {
	if path == "" {
		return Complete
	}
	if _, err := audiofile.ReadWAVInfo(path); err != nil {
		if artifact.Exists(path) {
			return PartiallyComplete
		}
		return NotStarted
	}
	return Complete
}

func videoState(path string) State {
	switch {
	case path == "":
		return Complete
	case artifact.NonEmpty(path):
		return Complete
	case artifact.Exists(path):
		return PartiallyComplete
	default:
		return NotStarted
	}
}

func poseState(paths []string) State {
	var present int
	for _, path := range paths {
		if artifact.Exists(path) {
			present++
		}
	}
	switch present {
	case len(paths):
		return Complete
	case 0:
		return NotStarted
	default:
		return PartiallyComplete
	}
}

// Evaluate inspects the outputs and builds the plan. With 'reprocess'
// everything is rebuilt regardless of what exists.
func Evaluate(ctx context.Context, outputs Outputs, reprocess bool) *Plan {
	plan := &Plan{}
	if reprocess {
		plan.Audio, plan.Video, plan.Pose = NotStarted, NotStarted, NotStarted
		if outputs.Audio == "" {
			plan.Audio = Complete
		}
		if outputs.Video == "" {
			plan.Video = Complete
		}
		if len(outputs.Poses) == 0 {
			plan.Pose = Complete
		}
	} else {
		plan.Audio = audioState(outputs.Audio)
		plan.Video = videoState(outputs.Video)
		plan.Pose = poseState(outputs.Poses)
	}

	switch {
	case plan.Done():
		plan.LagSource = LagSourceNone
		logger.Infof(ctx, "all the outputs are already complete, pass --reprocess to rebuild them")
	case !reprocess && plan.Audio == Complete && outputs.Offsets != "":
		plan.LagSource = LagSourceRecompute
		record, err := offsets.Load(outputs.Offsets)
		switch {
		case err != nil:
			logger.Debugf(ctx, "unable to reload the offsets, they will be recomputed: %v", err)
		case !record.Covers(outputs.Sources):
			logger.Debugf(ctx, "the offsets record does not cover all of %v, they will be recomputed", outputs.Sources)
		default:
			plan.LagSource = LagSourceReload
			plan.Offsets = record
		}
	default:
		plan.LagSource = LagSourceRecompute
	}

	logger.Debugf(ctx, "plan: audio:%s video:%s pose:%s lags:%s", plan.Audio, plan.Video, plan.Pose, plan.LagSource)
	return plan
}
