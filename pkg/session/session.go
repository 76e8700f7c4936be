package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/avsync/pkg/align"
	"github.com/xaionaro-go/avsync/pkg/artifact"
	"github.com/xaionaro-go/avsync/pkg/audio"
	"github.com/xaionaro-go/avsync/pkg/audio/audiofile"
	"github.com/xaionaro-go/avsync/pkg/gate"
	"github.com/xaionaro-go/avsync/pkg/mix"
	"github.com/xaionaro-go/avsync/pkg/offsets"
	"github.com/xaionaro-go/avsync/pkg/telemetry"
	"github.com/xaionaro-go/avsync/pkg/transcode"
)

// The file layout of a recording source directory. The same names are
// used for the synchronized outputs.
var (
	MonoAudioFileName = telemetry.MustLookupStream(telemetry.StreamIDMicrophones).FileName("-mono", "wav")
	AudioFileName     = telemetry.MustLookupStream(telemetry.StreamIDMicrophones).FileName("", "wav")
	VideoFileName     = telemetry.MustLookupStream(telemetry.StreamIDCameraSlamLeft).FileName("", "mp4")
)

const PoseFileName = "pose.csv"

// Source is one recording device of a session.
type Source struct {
	Name string
	Dir  string
}

// AudioPath returns the audio file of the source; the mono one is
// preferred. An empty string means the source has no audio.
func (s Source) AudioPath() string {
	for _, name := range []string{MonoAudioFileName, AudioFileName} {
		if path := filepath.Join(s.Dir, name); artifact.Exists(path) {
			return path
		}
	}
	return ""
}

func (s Source) VideoPath() string {
	return filepath.Join(s.Dir, VideoFileName)
}

func (s Source) PosePath() string {
	return filepath.Join(s.Dir, PoseFileName)
}

// Session is a set of sources that recorded the same event.
type Session struct {
	ID        string
	Sources   []Source
	OutputDir string
}

func NewSession(id string, outputDir string, dirs ...string) Session {
	s := Session{ID: id, OutputDir: outputDir}
	for _, dir := range dirs {
		s.Sources = append(s.Sources, Source{Name: filepath.Base(filepath.Clean(dir)), Dir: dir})
	}
	return s
}

func (s Session) SourceNames() []string {
	names := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		names[i] = src.Name
	}
	return names
}

// Validate checks that the sources can be told apart: the source name
// keys the offsets record and the logs.
func (s Session) Validate() error {
	if err := audio.CheckTrackCount("session", 2, len(s.Sources)); err != nil {
		return err
	}
	dirs := map[string]string{}
	for _, src := range s.Sources {
		if other, ok := dirs[src.Name]; ok {
			return fmt.Errorf("sources '%s' and '%s' have the same name '%s'", other, src.Dir, src.Name)
		}
		dirs[src.Name] = src.Dir
	}
	return nil
}

// companions returns the paths of a companion file of every source, or
// a MissingCompanionFileError if any source has none.
func (s Session) companions(kind string, pathOf func(Source) string) ([]string, error) {
	paths := make([]string, len(s.Sources))
	var missing []string
	for i, src := range s.Sources {
		paths[i] = pathOf(src)
		if !artifact.Exists(paths[i]) {
			missing = append(missing, src.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingCompanionFileError{Session: s.ID, Kind: kind, Missing: missing}
	}
	return paths, nil
}

type sessionInputs struct {
	audio  []string
	videos []string
	poses  []string
}

func (s Session) inputs(ctx context.Context) (*sessionInputs, error) {
	in := &sessionInputs{}
	for _, src := range s.Sources {
		path := src.AudioPath()
		if path == "" {
			return nil, &audiofile.LoadError{
				Path: filepath.Join(src.Dir, MonoAudioFileName),
				Err:  fmt.Errorf("source '%s' has neither %s nor %s", src.Name, MonoAudioFileName, AudioFileName),
			}
		}
		in.audio = append(in.audio, path)
	}

	var err error
	in.videos, err = s.companions("video", Source.VideoPath)
	if err != nil {
		logger.Infof(ctx, "skipping the videos: %v", err)
	}
	in.poses, err = s.companions("pose", Source.PosePath)
	if err != nil {
		logger.Infof(ctx, "skipping the poses: %v", err)
	}
	return in, nil
}

func (s Session) outputs(in *sessionInputs) gate.Outputs {
	out := gate.Outputs{
		Audio:   filepath.Join(s.OutputDir, MonoAudioFileName),
		Offsets: filepath.Join(s.OutputDir, offsets.DefaultFileName),
		Sources: s.SourceNames(),
	}
	if len(in.videos) > 0 {
		out.Video = filepath.Join(s.OutputDir, VideoFileName)
	}
	if len(in.poses) > 0 {
		out.Poses = telemetry.PoseFilePaths(s.OutputDir, len(in.poses))
	}
	return out
}

// timeline is what the companion stages need to know about the mixed audio.
type timeline struct {
	offsets  []float64
	lastTime float64
}

// ProcessSession aligns the audio of all the sources (trimmed to their
// common window and mixed to mono) and propagates the offsets to the
// videos and the poses. Outputs that are already complete are kept
// unless reprocessing is requested.
func (p *Processor) ProcessSession(
	ctx context.Context,
	s Session,
) (_err error) {
	ctx = logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithField("session", s.ID))
	logger.Tracef(ctx, "ProcessSession(ctx, '%s')", s.ID)
	defer func() { logger.Tracef(ctx, "/ProcessSession(ctx, '%s'): %v", s.ID, _err) }()

	if err := s.Validate(); err != nil {
		return &StageError{Session: s.ID, Stage: StageLoad, Err: err}
	}
	in, err := s.inputs(ctx)
	if err != nil {
		return &StageError{Session: s.ID, Stage: StageLoad, Err: err}
	}
	outputs := s.outputs(in)
	plan := gate.Evaluate(ctx, outputs, p.Config.Reprocess)
	if plan.Done() {
		return nil
	}

	tl, err := p.sessionTimeline(ctx, s, in, outputs, plan)
	if err != nil {
		return err
	}
	starts := align.StartTimes(tl.offsets)

	var mErr *multierror.Error
	if plan.NeedsVideo() {
		err := artifact.Produce(outputs.Video, func(tmpPath string) error {
			return p.Transcoder.HStack(ctx, transcode.HStackRequest{
				Videos:     in.videos,
				StartTimes: starts,
				Audio:      outputs.Audio,
				Output:     tmpPath,
			})
		})
		if err != nil {
			logger.Errorf(ctx, "unable to sync the videos: %v", err)
			mErr = multierror.Append(mErr, &StageError{Session: s.ID, Stage: StageVideo, Err: err})
		}
	}
	if plan.NeedsPose() {
		if _, err := telemetry.SyncPoses(ctx, in.poses, starts, tl.lastTime, s.OutputDir); err != nil {
			logger.Errorf(ctx, "unable to sync the poses: %v", err)
			mErr = multierror.Append(mErr, &StageError{Session: s.ID, Stage: StagePose, Err: err})
		}
	}
	return mErr.ErrorOrNil()
}

// sessionTimeline produces the mixed audio if needed and returns the
// offsets of the sources, either reloaded or recomputed.
func (p *Processor) sessionTimeline(
	ctx context.Context,
	s Session,
	in *sessionInputs,
	outputs gate.Outputs,
	plan *gate.Plan,
) (*timeline, error) {
	names := s.SourceNames()
	if plan.LagSource == gate.LagSourceReload && !plan.NeedsAudio() {
		offs, err := plan.Offsets.Offsets(names)
		if err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageLags, Err: err}
		}
		info, err := audiofile.ReadWAVInfo(outputs.Audio)
		if err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageLoad, Err: err}
		}
		logger.Debugf(ctx, "reloaded the offsets %v", offs)
		return &timeline{offsets: offs, lastTime: info.Seconds()}, nil
	}

	tracks, err := p.Loader.Load(ctx, in.audio)
	if err != nil {
		return nil, &StageError{Session: s.ID, Stage: StageLoad, Err: err}
	}
	result, err := p.EstimateLags(ctx, tracks, p.Config.Lag.Params())
	if err != nil {
		return nil, &StageError{Session: s.ID, Stage: StageLags, Err: err}
	}
	tl := &timeline{offsets: result.Offsets()}

	if plan.NeedsAudio() {
		aligned, err := align.Trim(tracks, result.Lags())
		if err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageAudio, Err: err}
		}
		mixed, err := mix.Mix(outputs.Audio, aligned)
		if err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageAudio, Err: err}
		}
		if err := audiofile.WriteWAV(outputs.Audio, mixed, p.Config.Audio.BitDepth); err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageAudio, Err: err}
		}
		tl.lastTime = mixed.Seconds()
	} else {
		info, err := audiofile.ReadWAVInfo(outputs.Audio)
		if err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageLoad, Err: err}
		}
		tl.lastTime = info.Seconds()
	}

	if p.Config.Session.WriteOffsets {
		record, err := offsets.New(names, tl.offsets)
		if err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageLags, Err: err}
		}
		if err := offsets.Save(outputs.Offsets, record); err != nil {
			return nil, &StageError{Session: s.ID, Stage: StageLags, Err: err}
		}
	}
	return tl, nil
}
