package cyberalchemy

import "time"

// ArchiveObserver receives archive events, typically to record metrics.
// Calls are made synchronously from Messages.
type ArchiveObserver interface {
	// ArchiveSucceeded is called after a pass moved the cursor over archived messages.
	ArchiveSucceeded(archived int, elapsed time.Duration)
	// ArchiveFailed is called after a pass that left the state unchanged.
	ArchiveFailed(err error, elapsed time.Duration)
	// WindowMeasured reports the live window size sent to the model.
	WindowMeasured(live int)
}

type nopObserver struct{}

func (nopObserver) ArchiveSucceeded(int, time.Duration) {}
func (nopObserver) ArchiveFailed(error, time.Duration)  {}
func (nopObserver) WindowMeasured(int)                  {}
