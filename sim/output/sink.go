package output

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
	"github.com/mobsim/mobsim/sim/filter"
)

// Sink is an event handler that must be closed after the simulation.
type Sink interface {
	sim.EventHandler
	Close() error
}

// Sinks is the set of sinks opened for one run.
type Sinks struct {
	Sinks []Sink
	// Files lists local files written by the sinks, in open order.
	Files []string

	filters []filter.EventFilter
	// Handler feeds all sinks with the events accepted by the filters.
	Handler *filter.Handler
}

// HandleEvent implements sim.EventHandler by fanning e out to every sink.
func (s *Sinks) HandleEvent(e sim.Event) {
	for _, sink := range s.Sinks {
		sink.HandleEvent(e)
	}
}

// Attach registers the sinks, behind the event filters, with the events
// manager.
func (s *Sinks) Attach(em *sim.EventsManager) {
	if len(s.Sinks) == 0 {
		return
	}
	s.Handler = filter.NewHandler(s, s.filters...)
	em.AddHandler(s.Handler)
}

// Close closes all sinks and joins their errors.
func (s *Sinks) Close() error {
	if s.Handler != nil && len(s.filters) > 0 {
		logrus.Infof("Event filters passed %d of %d events to the sinks", s.Handler.Passed(), s.Handler.Judged())
	}
	var errs []error
	for _, sink := range s.Sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open creates the sinks selected by cfg. Only events accepted by all filters
// reach them. Sinks opened before a failure are closed again.
func Open(cfg sim.OutputConfig, runID string, filters ...filter.EventFilter) (*Sinks, error) {
	s := &Sinks{filters: filters}
	fail := func(err error) (*Sinks, error) {
		if cerr := s.Close(); cerr != nil {
			logrus.Warnf("closing sinks after open failure: %v", cerr)
		}
		return nil, err
	}
	if cfg.EventsFile != "" {
		sink, err := NewJSONLFileSink(cfg.EventsFile)
		if err != nil {
			return fail(err)
		}
		s.Sinks = append(s.Sinks, sink)
		s.Files = append(s.Files, cfg.EventsFile)
	}
	if cfg.ParquetFile != "" {
		sink, err := NewParquetSink(cfg.ParquetFile)
		if err != nil {
			return fail(err)
		}
		s.Sinks = append(s.Sinks, sink)
		s.Files = append(s.Files, cfg.ParquetFile)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			return fail(err)
		}
		s.Sinks = append(s.Sinks, NewKafkaSink(producer, cfg.Kafka.Topic, runID))
	}
	logrus.Infof("Opened %d event sinks for run %s", len(s.Sinks), runID)
	return s, nil
}

func wrapClose(kind string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("closing %s sink: %w", kind, err)
}
