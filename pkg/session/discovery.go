package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Discover finds the sessions under 'root': every directory
// root/<session> with at least two source subdirectories that contain
// audio. The outputs of a session go to outputRoot/<session>.
func Discover(
	ctx context.Context,
	root string,
	outputRoot string,
) ([]Session, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("unable to list '%s': %w", root, err)
	}

	var sessions []Session
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sessionDir := filepath.Join(root, entry.Name())
		sourceEntries, err := os.ReadDir(sessionDir)
		if err != nil {
			return nil, fmt.Errorf("unable to list '%s': %w", sessionDir, err)
		}

		s := Session{ID: entry.Name(), OutputDir: filepath.Join(outputRoot, entry.Name())}
		for _, sourceEntry := range sourceEntries {
			if !sourceEntry.IsDir() {
				continue
			}
			src := Source{Name: sourceEntry.Name(), Dir: filepath.Join(sessionDir, sourceEntry.Name())}
			if src.AudioPath() == "" {
				logger.Debugf(ctx, "'%s' has no audio, not a source", src.Dir)
				continue
			}
			s.Sources = append(s.Sources, src)
		}
		if len(s.Sources) < 2 {
			logger.Infof(ctx, "skipping '%s': %d sources with audio, need at least 2", sessionDir, len(s.Sources))
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
