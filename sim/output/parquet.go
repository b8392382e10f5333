package output

import (
	"fmt"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/mobsim/mobsim/sim"
)

// ParquetSink writes events as rows of a Parquet file.
type ParquetSink struct {
	mu  sync.Mutex
	fw  source.ParquetFile
	pw  *writer.ParquetWriter
	err error
}

// NewParquetSink creates path and writes with 4 parallel column writers.
func NewParquetSink(path string) (*ParquetSink, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create local file writer: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(eventRecord), 4)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	return &ParquetSink{fw: fw, pw: pw}, nil
}

// HandleEvent writes e as one row. The first write error is kept and
// reported by Close.
func (s *ParquetSink) HandleEvent(e sim.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if err := s.pw.Write(newEventRecord(e)); err != nil {
		s.err = fmt.Errorf("failed to write event: %w", err)
	}
}

// Close writes the footer and closes the file.
func (s *ParquetSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	if werr := s.pw.WriteStop(); err == nil {
		err = werr
	}
	if cerr := s.fw.Close(); err == nil {
		err = cerr
	}
	return wrapClose("parquet", err)
}
