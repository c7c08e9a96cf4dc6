package capture

import "github.com/rotisserie/eris"

var (
	// ErrPermissionDenied is returned when the capture device refuses to open.
	ErrPermissionDenied = eris.New("audio capture permission denied")
	// ErrCancelled is returned when the user backs out of picking a capture source.
	ErrCancelled = eris.New("audio capture cancelled")
)
