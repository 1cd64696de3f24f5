package stat

import "errors"

var (
	// ErrProcGone indicates a process exited between enumeration and the
	// metric read, or denied access. Callers skip it without error.
	ErrProcGone = errors.New("stat: process gone or access denied")

	// ErrNoCPU indicates the CPU percentage reading came back empty.
	ErrNoCPU = errors.New("stat: no cpu reading")
)
