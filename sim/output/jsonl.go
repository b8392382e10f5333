package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mobsim/mobsim/sim"
)

// eventRecord is the serialized form of sim.Event. Empty fields are omitted.
type eventRecord struct {
	Time       float64 `json:"time" parquet:"name=time,type=DOUBLE"`
	Type       string  `json:"type" parquet:"name=type,type=BYTE_ARRAY,convertedtype=UTF8"`
	PersonID   string  `json:"person,omitempty" parquet:"name=person,type=BYTE_ARRAY,convertedtype=UTF8"`
	LinkID     string  `json:"link,omitempty" parquet:"name=link,type=BYTE_ARRAY,convertedtype=UTF8"`
	VehicleID  string  `json:"vehicle,omitempty" parquet:"name=vehicle,type=BYTE_ARRAY,convertedtype=UTF8"`
	LegMode    string  `json:"legMode,omitempty" parquet:"name=leg_mode,type=BYTE_ARRAY,convertedtype=UTF8"`
	ActType    string  `json:"actType,omitempty" parquet:"name=act_type,type=BYTE_ARRAY,convertedtype=UTF8"`
	FacilityID string  `json:"facility,omitempty" parquet:"name=facility,type=BYTE_ARRAY,convertedtype=UTF8"`
}

func newEventRecord(e sim.Event) eventRecord {
	return eventRecord{
		Time:       e.Time,
		Type:       string(e.Type),
		PersonID:   string(e.PersonID),
		LinkID:     string(e.LinkID),
		VehicleID:  string(e.VehicleID),
		LegMode:    e.LegMode,
		ActType:    e.ActType,
		FacilityID: string(e.FacilityID),
	}
}

// JSONLSink writes one JSON object per event and line.
type JSONLSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	err    error
}

// NewJSONLSink writes to w. If w is an io.Closer it is closed by Close.
func NewJSONLSink(w io.Writer) *JSONLSink {
	bw := bufio.NewWriter(w)
	s := &JSONLSink{w: bw, enc: json.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewJSONLFileSink creates or truncates path.
func NewJSONLFileSink(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating events file: %w", err)
	}
	return NewJSONLSink(f), nil
}

// HandleEvent encodes e. The first write error is kept and reported by Close.
func (s *JSONLSink) HandleEvent(e sim.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = s.enc.Encode(newEventRecord(e))
}

// Close flushes buffered lines and closes the underlying writer if it is a
// Closer.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	if ferr := s.w.Flush(); err == nil {
		err = ferr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return wrapClose("jsonl", err)
}
