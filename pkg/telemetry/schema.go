package telemetry

import (
	"fmt"
	"strings"
)

// StreamID identifies a stream of a recording container, in the form
// "<device type>-<instance>", e.g. "1202-1".
type StreamID string

type StreamKind int

const (
	UndefinedStreamKind = StreamKind(iota)
	StreamKindSensor
	StreamKindVideo
	StreamKindAudio
	StreamKindOther
	EndOfStreamKind
)

func (k StreamKind) String() string {
	switch k {
	case UndefinedStreamKind:
		return "undefined"
	case StreamKindSensor:
		return "sensor"
	case StreamKindVideo:
		return "video"
	case StreamKindAudio:
		return "audio"
	case StreamKindOther:
		return "other"
	default:
		return fmt.Sprintf("unknown_stream_kind_%d", int(k))
	}
}

type FieldType int

const (
	UndefinedFieldType = FieldType(iota)
	FieldTypeTimestampNS
	FieldTypeFloat32
	FieldTypeFloat64
	FieldTypeVector3
	FieldTypeSeconds
	EndOfFieldType
)

func (t FieldType) String() string {
	switch t {
	case UndefinedFieldType:
		return "undefined"
	case FieldTypeTimestampNS:
		return "timestamp_ns"
	case FieldTypeFloat32:
		return "float32"
	case FieldTypeFloat64:
		return "float64"
	case FieldTypeVector3:
		return "vec3"
	case FieldTypeSeconds:
		return "seconds"
	default:
		return fmt.Sprintf("unknown_field_type_%d", int(t))
	}
}

// Columns returns how many CSV columns a field of the type takes.
func (t FieldType) Columns() int {
	if t == FieldTypeVector3 {
		return 3
	}
	return 1
}

type Field struct {
	Name string
	Type FieldType
	Unit string
}

type Stream struct {
	ID     StreamID
	Name   string
	Kind   StreamKind
	Fields []Field
}

// Columns returns the CSV header columns of the stream, vector fields
// expanded into _x, _y and _z.
func (s Stream) Columns() []string {
	var result []string
	for _, f := range s.Fields {
		if f.Type.Columns() == 1 {
			result = append(result, f.Name)
			continue
		}
		for _, axis := range []string{"x", "y", "z"} {
			result = append(result, f.Name+"_"+axis)
		}
	}
	return result
}

func captureTimestamp() Field {
	return Field{Name: "capture_timestamp_ns", Type: FieldTypeTimestampNS, Unit: "ns"}
}

// The streams extracted from the recordings into session directories.
const (
	StreamIDMicrophones    = StreamID("231-1")
	StreamIDCameraSlamLeft = StreamID("1201-1")
)

// Streams is the table of the known streams of the glasses recordings.
var Streams = map[StreamID]Stream{
	"211-1":  {ID: "211-1", Name: "camera-eye-tracking", Kind: StreamKindVideo},
	"214-1":  {ID: "214-1", Name: "camera-rgb", Kind: StreamKindVideo},
	"231-1":  {ID: "231-1", Name: "microphones", Kind: StreamKindAudio},
	"282-1":  {ID: "282-1", Name: "wifi", Kind: StreamKindOther},
	"283-1":  {ID: "283-1", Name: "bluetooth", Kind: StreamKindOther},
	"1201-1": {ID: "1201-1", Name: "camera-slam-left", Kind: StreamKindVideo},
	"1201-2": {ID: "1201-2", Name: "camera-slam-right", Kind: StreamKindVideo},
	"247-1": {ID: "247-1", Name: "barometer", Kind: StreamKindSensor, Fields: []Field{
		captureTimestamp(),
		{Name: "temperature", Type: FieldTypeFloat32, Unit: "deg. C"},
		{Name: "pressure", Type: FieldTypeFloat32, Unit: "Pa"},
	}},
	"281-1": {ID: "281-1", Name: "gps", Kind: StreamKindSensor, Fields: []Field{
		captureTimestamp(),
		{Name: "latitude", Type: FieldTypeFloat64, Unit: "dec. deg."},
		{Name: "longitude", Type: FieldTypeFloat64, Unit: "dec. deg."},
		{Name: "altitude", Type: FieldTypeFloat32, Unit: "m"},
	}},
	"285-1": {ID: "285-1", Name: "time", Kind: StreamKindSensor, Fields: []Field{
		{Name: "monotonic_timestamp_ns", Type: FieldTypeTimestampNS, Unit: "ns"},
		{Name: "real_timestamp_ns", Type: FieldTypeTimestampNS, Unit: "ns"},
	}},
	"1202-1": {ID: "1202-1", Name: "imu-right", Kind: StreamKindSensor, Fields: []Field{
		captureTimestamp(),
		{Name: "accelerometer", Type: FieldTypeVector3, Unit: "m/s^2"},
		{Name: "gyroscope", Type: FieldTypeVector3, Unit: "rad/s"},
	}},
	"1202-2": {ID: "1202-2", Name: "imu-left", Kind: StreamKindSensor, Fields: []Field{
		captureTimestamp(),
		{Name: "accelerometer", Type: FieldTypeVector3, Unit: "m/s^2"},
		{Name: "gyroscope", Type: FieldTypeVector3, Unit: "rad/s"},
	}},
	"1203-1": {ID: "1203-1", Name: "magnetometer", Kind: StreamKindSensor, Fields: []Field{
		captureTimestamp(),
		{Name: "magnetometer", Type: FieldTypeVector3, Unit: "T"},
	}},
}

// LookupStream finds a stream by its ID or by its name.
func LookupStream(idOrName string) (Stream, bool) {
	if s, ok := Streams[StreamID(idOrName)]; ok {
		return s, true
	}
	for _, s := range Streams {
		if s.Name == idOrName {
			return s, true
		}
	}
	return Stream{}, false
}

// MustLookupStream is LookupStream for the streams this package
// declares; it panics on an unknown stream.
func MustLookupStream(id StreamID) Stream {
	s, ok := LookupStream(string(id))
	if !ok {
		panic(fmt.Sprintf("unknown stream %s", id))
	}
	return s
}

// FileName is the name of the file the stream is extracted to, e.g.
// "microphones-mono.wav" for FileName("-mono", "wav").
func (s Stream) FileName(suffix, ext string) string {
	return s.Name + suffix + "." + ext
}

func (s Stream) Validate() error {
	if !strings.Contains(string(s.ID), "-") {
		return fmt.Errorf("invalid stream ID %q", s.ID)
	}
	if s.Name == "" {
		return fmt.Errorf("stream %s has no name", s.ID)
	}
	if s.Kind <= UndefinedStreamKind || s.Kind >= EndOfStreamKind {
		return fmt.Errorf("stream %s has invalid kind %d", s.ID, int(s.Kind))
	}
	if s.Kind != StreamKindSensor {
		if len(s.Fields) != 0 {
			return fmt.Errorf("%s stream %s is not expected to have fields", s.Kind, s.ID)
		}
		return nil
	}
	if len(s.Fields) < 2 {
		return fmt.Errorf("sensor stream %s has %d fields, expected a timestamp and at least one value", s.ID, len(s.Fields))
	}
	if s.Fields[0].Type != FieldTypeTimestampNS {
		return fmt.Errorf("the first field of sensor stream %s must be a timestamp, but it is %s", s.ID, s.Fields[0].Type)
	}
	seen := map[string]struct{}{}
	for idx, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field #%d of stream %s has no name", idx, s.ID)
		}
		if f.Type <= UndefinedFieldType || f.Type >= EndOfFieldType {
			return fmt.Errorf("field %s of stream %s has invalid type %d", f.Name, s.ID, int(f.Type))
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("duplicate field %s in stream %s", f.Name, s.ID)
		}
		seen[f.Name] = struct{}{}
	}
	columns := map[string]struct{}{}
	for _, c := range s.Columns() {
		if _, ok := columns[c]; ok {
			return fmt.Errorf("stream %s has two columns named %s", s.ID, c)
		}
		columns[c] = struct{}{}
	}
	return nil
}

// ValidateSchemas checks the stream table; it is called once on startup.
func ValidateSchemas() error {
	names := map[string]StreamID{}
	for id, s := range Streams {
		if id != s.ID {
			return fmt.Errorf("stream %s is registered as %s", s.ID, id)
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if other, ok := names[s.Name]; ok {
			return fmt.Errorf("streams %s and %s have the same name %q", other, id, s.Name)
		}
		names[s.Name] = id
	}
	for _, layout := range []PoseLayout{PoseLayoutOrientation, PoseLayoutPositionOrientation} {
		if len(layout.Columns()) != layout.Width() {
			return fmt.Errorf("pose layout %s: %d columns, but width %d", layout, len(layout.Columns()), layout.Width())
		}
	}
	return nil
}
