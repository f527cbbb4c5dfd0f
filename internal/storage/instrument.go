package storage

import "github.com/IshaanNene/GapFill/internal/types"

// Recorder receives the size of every successful write.
type Recorder interface {
	RecordStored(n int)
}

type instrumented struct {
	Storage
	rec Recorder
}

// Instrument wraps s so that stored row counts are reported to rec.
// A nil rec returns s unchanged.
func Instrument(s Storage, rec Recorder) Storage {
	if rec == nil {
		return s
	}
	return &instrumented{Storage: s, rec: rec}
}

func (i *instrumented) Store(rows []types.Row) error {
	if err := i.Storage.Store(rows); err != nil {
		return err
	}
	i.rec.RecordStored(len(rows))
	return nil
}
