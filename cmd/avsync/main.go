package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"github.com/xaionaro-go/avsync/pkg/config"
	"github.com/xaionaro-go/avsync/pkg/session"
	"github.com/xaionaro-go/avsync/pkg/telemetry"
)

type app struct {
	ctx       context.Context
	logLevel  logger.Level
	cfgPath   string
	flags     *config.Flags
	processor *session.Processor
}

func main() {
	a := &app{
		ctx:      context.Background(),
		logLevel: logger.LevelInfo,
	}
	root := a.rootCommand()
	err := root.Execute()
	belt.Flush(a.ctx)
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "avsync",
		Short:        "aligns recordings of the same event made by independent devices",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	fs := root.PersistentFlags()
	fs.Var(&a.logLevel, "log-level", "Log level")
	fs.StringVar(&a.cfgPath, "config", "", "path to a YAML config file")
	a.flags = config.RegisterFlags(fs)

	root.AddCommand(
		a.audioCommand(),
		a.sessionCommand(),
		a.sessionsCommand(),
		a.runsCommand(),
	)
	return root
}

func (a *app) init() error {
	l := logrus.Default().WithLevel(a.logLevel)
	a.ctx = logger.CtxWithLogger(a.ctx, l)
	logger.Default = func() logger.Logger {
		return l
	}

	if err := telemetry.ValidateSchemas(); err != nil {
		return fmt.Errorf("invalid stream table: %w", err)
	}
	cfg, err := config.Resolve(config.Default(), a.cfgPath, a.flags)
	if err != nil {
		return err
	}
	logger.Debugf(a.ctx, "config: %#+v", cfg)
	a.processor, err = session.NewProcessor(cfg)
	return err
}

func (a *app) audioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audio <input> <input> [<input>...] <output.wav>",
		Short: "sync audio files into one WAV file",
		Long: "Estimates the lags of the inputs relative to the first one, aligns them (--mode) " +
			"and writes either their mono mix (--mono) or all their channels side by side.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, output := args[:len(args)-1], args[len(args)-1]
			return a.processor.SyncAudio(a.ctx, inputs, output)
		},
	}
}

func (a *app) sessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session <source-dir> <source-dir> [<source-dir>...] <output-dir>",
		Short: "sync the audio, video and poses of the recordings of one session",
		Long: "Every source directory holds " + session.MonoAudioFileName + " (or " + session.AudioFileName + ")" +
			" and optionally " + session.VideoFileName + " and " + session.PoseFileName + ".",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, outputDir := args[:len(args)-1], args[len(args)-1]
			for _, dir := range dirs {
				if st, err := os.Stat(dir); err != nil || !st.IsDir() {
					return fmt.Errorf("'%s' is not a directory", dir)
				}
			}
			s := session.NewSession(filepath.Base(filepath.Clean(outputDir)), outputDir, dirs...)
			return a.processor.ProcessSession(a.ctx, s)
		},
	}
}

func (a *app) sessionsCommand() *cobra.Command {
	var progress bool
	cmd := &cobra.Command{
		Use:   "sessions <root> <output-root>",
		Short: "sync every session found under <root>/<session>/<source>/",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := session.Discover(a.ctx, args[0], args[1])
			if err != nil {
				return err
			}
			logger.Infof(a.ctx, "found %d sessions", len(sessions))

			var onDone func(session.Session, error)
			var bars *mpb.Progress
			if progress {
				bars = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
				bar := bars.AddBar(int64(len(sessions)),
					mpb.PrependDecorators(
						decor.Name("Sessions: "),
						decor.CountersNoUnit("%d / %d"),
					),
					mpb.AppendDecorators(
						decor.Percentage(),
						decor.EwmaETA(decor.ET_STYLE_GO, 60),
					),
				)
				onDone = func(session.Session, error) {
					bar.Increment()
				}
			}

			err = a.processor.ProcessSessions(a.ctx, sessions, onDone)
			if bars != nil {
				bars.Wait()
			}
			if err != nil {
				logger.Errorf(a.ctx, "some sessions failed: %v", err)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", false, "show a progress bar")
	return cmd
}

func (a *app) runsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <data-dir> <name>",
		Short: "sync the runs recorded by several devices",
		Long: "Reads <data-dir>/audio/<name> <device> for every configured device, " +
			"groups the files by the run number and writes <data-dir>/audio/<name>/run<N>.wav.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.processor.ProcessRuns(a.ctx, args[0], args[1])
		},
	}
}
