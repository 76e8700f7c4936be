package session

import (
	"fmt"
	"strings"
)

// MissingCompanionFileError means that not every source of a session has
// the file of a companion modality (video, pose). The modality is
// skipped; it is not a failure of the session.
type MissingCompanionFileError struct {
	Session string
	Kind    string
	Missing []string
}

func (e *MissingCompanionFileError) Error() string {
	return fmt.Sprintf("session '%s': no %s for %s", e.Session, e.Kind, strings.Join(e.Missing, ", "))
}

// StageError is a failure of one stage of a session.
type StageError struct {
	Session string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("session '%s', stage %s: %v", e.Session, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Stage string

const (
	StageLoad  = Stage("load")
	StageLags  = Stage("lags")
	StageAudio = Stage("audio")
	StageVideo = Stage("video")
	StagePose  = Stage("pose")
)

func (s Stage) String() string {
	return string(s)
}
