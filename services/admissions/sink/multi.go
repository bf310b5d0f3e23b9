package sink

import (
	"errors"

	"gaokao-admissions/services/admissions"
)

// Multi fans every call out to several sinks.
type Multi []admissions.Sink

func (m Multi) Open(report admissions.Report) (admissions.Writer, error) {
	writers := make(multiWriter, 0, len(m))
	for _, s := range m {
		w, err := s.Open(report)
		if err != nil {
			return nil, errors.Join(err, writers.Close())
		}
		writers = append(writers, w)
	}
	return writers, nil
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

type multiWriter []admissions.Writer

func (m multiWriter) Append(record admissions.Record) error {
	for _, w := range m {
		err := w.Append(record)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) Flush() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Flush())
	}
	return errors.Join(errs...)
}

func (m multiWriter) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
