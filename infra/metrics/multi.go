package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/chpsim/core/metrics"
)

// MultiSink fans records out to several sinks. All sinks are invoked
// even when one of them fails; errors are joined.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a sink writing to all given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordStep(rec coremetrics.StepRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordStep(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRun(rec coremetrics.RunRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordRun(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
