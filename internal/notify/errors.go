package notify

import "errors"

// Dispatch failures. None of them is fatal to the host application; callers
// match them with errors.Is.
var (
	// ErrCapabilityUnavailable means the host has no notification primitive.
	ErrCapabilityUnavailable = errors.New("notification capability unavailable")
	// ErrPermissionDenied means the user or platform declined consent.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrSuppressed means notifications are disabled in settings. It is
	// policy, not a failure, and should not be surfaced to the user.
	ErrSuppressed = errors.New("notifications disabled")
	// ErrDisplayFailed means the platform rejected the display request. The
	// returned error also wraps the platform's reason.
	ErrDisplayFailed = errors.New("notification display failed")
)
