package driver

import "time"

// Stage describes what the driver is doing with a routine.
type Stage string

const (
	// StageRewrite is the destructor pass proper.
	StageRewrite Stage = "rewrite"
	// StageExpand renders the before/cfg/after dump.
	StageExpand Stage = "expand"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the routine is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the routine is being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the routine finished without errors.
	StatusDone Status = "done"
	// StatusError indicates the routine reported an error.
	StatusError Status = "error"
)

// Event reports progress for a routine (or for the whole unit when Routine
// is empty).
type Event struct {
	Routine string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
