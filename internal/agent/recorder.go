package agent

import "time"

// Recorder receives pipeline measurements.
type Recorder interface {
	Ingested(category string, stored int, err error)
	Responded(intent string, d time.Duration, err error)
	CollaboratorCall(name string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) Ingested(string, int, error)                  {}
func (nopRecorder) Responded(string, time.Duration, error)        {}
func (nopRecorder) CollaboratorCall(string, time.Duration, error) {}
