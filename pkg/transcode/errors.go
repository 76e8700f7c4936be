package transcode

import (
	"fmt"
	"strings"
)

// ExternalToolError is returned when an external tool (ffmpeg, ffprobe)
// exits with a non-zero code or cannot be started at all.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > 512 {
		stderr = "..." + stderr[len(stderr)-512:]
	}
	return fmt.Sprintf("%s exited with code %d: %v; stderr: %s", e.Tool, e.ExitCode, e.Err, stderr)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
