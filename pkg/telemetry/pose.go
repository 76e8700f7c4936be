package telemetry

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type PoseLayout int

const (
	UndefinedPoseLayout = PoseLayout(iota)

	// PoseLayoutOrientation is "t,qw,qx,qy,qz".
	PoseLayoutOrientation

	// PoseLayoutPositionOrientation is "t,x,y,z,qw,qx,qy,qz".
	PoseLayoutPositionOrientation
)

func (l PoseLayout) String() string {
	switch l {
	case UndefinedPoseLayout:
		return "undefined"
	case PoseLayoutOrientation:
		return "orientation"
	case PoseLayoutPositionOrientation:
		return "position+orientation"
	default:
		return fmt.Sprintf("unknown_pose_layout_%d", int(l))
	}
}

func (l PoseLayout) Columns() []string {
	switch l {
	case PoseLayoutOrientation:
		return []string{"t", "qw", "qx", "qy", "qz"}
	case PoseLayoutPositionOrientation:
		return []string{"t", "x", "y", "z", "qw", "qx", "qy", "qz"}
	default:
		return nil
	}
}

func (l PoseLayout) Width() int {
	switch l {
	case PoseLayoutOrientation:
		return 5
	case PoseLayoutPositionOrientation:
		return 8
	default:
		return 0
	}
}

func poseLayoutForWidth(width int) (PoseLayout, error) {
	switch width {
	case 5:
		return PoseLayoutOrientation, nil
	case 8:
		return PoseLayoutPositionOrientation, nil
	default:
		return UndefinedPoseLayout, fmt.Errorf("a pose row has %d columns, expected 5 (t,qw,qx,qy,qz) or 8 (t,x,y,z,qw,qx,qy,qz)", width)
	}
}

// Pose is a timestamped stream of orientations (and optionally
// positions). Rows[i][0] is the timestamp in seconds.
type Pose struct {
	Layout PoseLayout
	Rows   [][]float64
}

// ReadPose parses pose CSV data. Comment lines (the header) are
// skipped; timestamps must not decrease.
func ReadPose(r io.Reader) (*Pose, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	pose := &Pose{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read the pose data: %w", err)
		}
		if pose.Layout == UndefinedPoseLayout {
			pose.Layout, err = poseLayoutForWidth(len(record))
			if err != nil {
				return nil, err
			}
		}
		row := make([]float64, len(record))
		for idx, field := range record {
			row[idx], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, column := reader.FieldPos(idx)
				return nil, fmt.Errorf("line %d, column %d: unable to parse %q: %w", line, column, field, err)
			}
		}
		if n := len(pose.Rows); n > 0 && row[0] < pose.Rows[n-1][0] {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: the timestamp %v is before the previous one %v", line, row[0], pose.Rows[n-1][0])
		}
		pose.Rows = append(pose.Rows, row)
	}
	if len(pose.Rows) == 0 {
		return nil, fmt.Errorf("no pose rows")
	}
	return pose, nil
}

func LoadPoseFile(path string) (*Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()
	pose, err := ReadPose(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return pose, nil
}

// WritePose writes the pose in the same format ReadPose reads, every
// value with 15 decimal digits.
func WritePose(w io.Writer, pose *Pose) error {
	buf := bufio.NewWriter(w)
	columns := pose.Layout.Columns()
	if columns == nil {
		return fmt.Errorf("invalid pose layout %s", pose.Layout)
	}
	if _, err := fmt.Fprintf(buf, "# %s\n", strings.Join(columns, ",")); err != nil {
		return err
	}
	var line []byte
	for idx, row := range pose.Rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values, expected %d", idx, len(row), len(columns))
		}
		line = line[:0]
		for col, v := range row {
			if col > 0 {
				line = append(line, ',')
			}
			line = strconv.AppendFloat(line, v, 'f', 15, 64)
		}
		line = append(line, '\n')
		if _, err := buf.Write(line); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// Rebase moves the timeline of the pose so that its first row is at
// -start, and drops every row outside of [0, lastTime]. Here start is
// the position within this source where the shared timeline begins.
func (p *Pose) Rebase(start, lastTime float64) *Pose {
	result := &Pose{Layout: p.Layout}
	if len(p.Rows) == 0 {
		return result
	}
	t0 := p.Rows[0][0]
	for _, row := range p.Rows {
		t := (row[0] - t0) - start
		if t < 0 {
			continue
		}
		if t > lastTime {
			break
		}
		shifted := make([]float64, len(row))
		copy(shifted, row)
		shifted[0] = t
		result.Rows = append(result.Rows, shifted)
	}
	return result
}

// Duration is the time between the first and the last row.
func (p *Pose) Duration() float64 {
	if len(p.Rows) == 0 {
		return 0
	}
	return p.Rows[len(p.Rows)-1][0] - p.Rows[0][0]
}
