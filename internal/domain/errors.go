package domain

import "errors"

var (
	// ErrNotReady signals that a render was requested before the engine was
	// started or after it was stopped.
	ErrNotReady = errors.New("render engine not started or not ready")

	// ErrRenderTimeout signals that page content failed to settle within
	// the configured bound. Kept distinct from RenderError so the boundary
	// can answer 504 instead of 500.
	ErrRenderTimeout = errors.New("render timed out waiting for content")
)

// LaunchError reports that the browser process could not be started.
type LaunchError struct {
	Cause error
}

func (e *LaunchError) Error() string {
	return "failed to launch browser: " + e.Cause.Error()
}

func (e *LaunchError) Unwrap() error { return e.Cause }

// RenderError is the catch-all for capture-pipeline failures. It carries
// the original cause for logging; callers only see a sanitized message.
type RenderError struct {
	Cause error
}

func (e *RenderError) Error() string {
	return "pdf generation failed: " + e.Cause.Error()
}

func (e *RenderError) Unwrap() error { return e.Cause }
