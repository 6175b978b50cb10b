package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorKind classifies capture and recorder failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindDeviceBusy
	KindRecorderStartFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindDeviceNotFound:
		return "device_not_found"
	case KindDeviceBusy:
		return "device_busy"
	case KindRecorderStartFailure:
		return "recorder_start_failure"
	default:
		return "unknown"
	}
}

// Error is a classified capture failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrDeviceNotFound       = &Error{Kind: KindDeviceNotFound}
	ErrDeviceBusy           = &Error{Kind: KindDeviceBusy}
	ErrRecorderStartFailure = &Error{Kind: KindRecorderStartFailure}
)

var (
	ErrNoStream          = errors.New("no capture stream")
	ErrClosed            = errors.New("capture manager closed")
	ErrStale             = errors.New("acquisition superseded")
	ErrUnsupportedFormat = errors.New("unsupported recording format")
)

// Classify maps an arbitrary acquisition error onto the taxonomy.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: KindPermissionDenied, Err: err}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV):
		return &Error{Kind: KindDeviceNotFound, Err: err}
	case errors.Is(err, syscall.EBUSY):
		return &Error{Kind: KindDeviceBusy, Err: err}
	case errors.Is(err, ErrUnsupportedFormat):
		return &Error{Kind: KindRecorderStartFailure, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindUnknown, Err: err}
	}
	return &Error{Kind: KindUnknown, Err: err}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

const accessPrefix = "Unable to access camera and microphone. "

// UserMessage is the text shown next to the retry control.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindPermissionDenied:
		return accessPrefix + "Please allow camera and microphone permissions and try again."
	case KindDeviceNotFound:
		return accessPrefix + "No camera or microphone found on this device."
	case KindDeviceBusy:
		return accessPrefix + "Camera or microphone is already in use by another application."
	case KindRecorderStartFailure:
		return "Failed to start recording. Please try again."
	default:
		return accessPrefix + "Please check your device settings and try again."
	}
}
