package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/avsync/pkg/artifact"
	"github.com/xaionaro-go/avsync/pkg/audio/audiofile"
	"github.com/xaionaro-go/avsync/pkg/syncer"
)

// RunFile is a recording of a run by one device.
type RunFile struct {
	Path string
	// Device is the index of the device in the runs configuration.
	Device int
}

// Run is a numbered take recorded by several devices at once.
type Run struct {
	Number int
	Files  []RunFile
}

// GroupRuns collects the files of the device directories into runs by
// the run number the pattern captures (its first group) from the file
// names. Runs are ordered by number, their files by device.
func GroupRuns(
	ctx context.Context,
	dirs []string,
	pattern *regexp.Regexp,
) ([]Run, error) {
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("the run pattern %q has no group to capture the run number", pattern)
	}

	byNumber := map[int]*Run{}
	for device, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("unable to list '%s': %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			m := pattern.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			number, err := strconv.Atoi(m[1])
			if err != nil {
				logger.Debugf(ctx, "'%s': no run number: %v", entry.Name(), err)
				continue
			}
			run := byNumber[number]
			if run == nil {
				run = &Run{Number: number}
				byNumber[number] = run
			}
			run.Files = append(run.Files, RunFile{Path: filepath.Join(dir, entry.Name()), Device: device})
		}
	}

	runs := make([]Run, 0, len(byNumber))
	for _, run := range byNumber {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Number < runs[j].Number })
	return runs, nil
}

func RunFileName(number int) string {
	return fmt.Sprintf("run%d.wav", number)
}

func RunChannelsFileName(number int) string {
	return fmt.Sprintf("run%d-channels.csv", number)
}

// ProcessRuns syncs the runs of 'name' recorded by the configured
// devices: the recordings are read from
// <dataDir>/audio/<name> <device>, the synced runs are written to
// <dataDir>/audio/<name>/run<N>.wav and the list of devices of each
// channel to <dataDir>/<channels dir>/<name>/run<N>-channels.csv.
// A failed run is logged and does not stop the others.
func (p *Processor) ProcessRuns(
	ctx context.Context,
	dataDir string,
	name string,
) (_err error) {
	logger.Tracef(ctx, "ProcessRuns(ctx, '%s', '%s')", dataDir, name)
	defer func() { logger.Tracef(ctx, "/ProcessRuns(ctx, '%s', '%s'): %v", dataDir, name, _err) }()

	cfg := p.Config.Runs
	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return fmt.Errorf("invalid run pattern: %w", err)
	}

	audioDir := filepath.Join(dataDir, "audio")
	dirs := make([]string, len(cfg.Devices))
	for i, dev := range cfg.Devices {
		dirs[i] = filepath.Join(audioDir, name+" "+dev.Name)
	}
	outputDir := filepath.Join(audioDir, name)
	channelsDir := filepath.Join(dataDir, cfg.ChannelsDir, name)

	runs, err := GroupRuns(ctx, dirs, pattern)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "found %d runs of '%s'", len(runs), name)

	var mErr *multierror.Error
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processRun(ctx, run, outputDir, channelsDir); err != nil {
			logger.Errorf(ctx, "unable to sync run %d: %v", run.Number, err)
			mErr = multierror.Append(mErr, fmt.Errorf("run %d: %w", run.Number, err))
		}
	}
	return mErr.ErrorOrNil()
}

func (p *Processor) processRun(
	ctx context.Context,
	run Run,
	outputDir string,
	channelsDir string,
) error {
	cfg := p.Config.Runs
	output := filepath.Join(outputDir, RunFileName(run.Number))
	if !p.Config.Reprocess && artifact.Exists(output) {
		logger.Warnf(ctx, "'%s' already exists, skipping", output)
		return nil
	}

	if len(run.Files) == 1 {
		logger.Debugf(ctx, "copying '%s' to '%s'", run.Files[0].Path, output)
		return artifact.CopyFile(output, run.Files[0].Path)
	}

	paths := make([]string, len(run.Files))
	bounds := make([]*syncer.Bound, len(run.Files))
	devices := make([]string, len(run.Files))
	for i, f := range run.Files {
		paths[i] = f.Path
		bounds[i] = cfg.Devices[f.Device].Bound
		devices[i] = cfg.Devices[f.Device].Name
	}

	logger.Debugf(ctx, "syncing run %d", run.Number)
	tracks, err := p.Loader.Load(ctx, paths)
	if err != nil {
		return err
	}
	result, err := p.EstimateLags(ctx, tracks, syncer.Params{
		Strategy:        p.Config.Lag.Strategy,
		Bounds:          bounds,
		BoundsTolerance: cfg.BoundsTolerance,
		MaxLag:          p.Config.Lag.MaxLag,
	})
	if err != nil {
		return fmt.Errorf("unable to estimate the lags: %w", err)
	}
	combined, err := combine(output, tracks, result.Lags(), cfg.Mode, false)
	if err != nil {
		return err
	}
	if err := audiofile.WriteWAV(output, combined, p.Config.Audio.BitDepth); err != nil {
		return err
	}
	logger.Debugf(ctx, "saved the synced audio to '%s'", output)

	channelsFile := filepath.Join(channelsDir, RunChannelsFileName(run.Number))
	err = artifact.WriteFile(channelsFile, func(f *os.File) error {
		_, err := f.WriteString(strings.Join(devices, "\n") + "\n")
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to write '%s': %w", channelsFile, err)
	}
	logger.Debugf(ctx, "saved the channels to '%s'", channelsFile)
	return nil
}
