package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"permission", fmt.Errorf("open /dev/video0: %w", fs.ErrPermission), KindPermissionDenied},
		{"not exist", fmt.Errorf("stat: %w", fs.ErrNotExist), KindDeviceNotFound},
		{"no device", syscall.ENODEV, KindDeviceNotFound},
		{"busy", fmt.Errorf("ioctl: %w", syscall.EBUSY), KindDeviceBusy},
		{"format", fmt.Errorf("%w: video/ogg", ErrUnsupportedFormat), KindRecorderStartFailure},
		{"canceled", context.Canceled, KindUnknown},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got.Kind)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("Expected classified error to wrap the cause")
			}
		})
	}
}

func TestClassify_KeepsClassifiedErrors(t *testing.T) {
	orig := &Error{Kind: KindDeviceBusy, Err: errors.New("in use")}
	if Classify(orig) != orig {
		t.Error("Expected an already classified error to be returned as is")
	}
	if Classify(nil) != nil {
		t.Error("Expected nil for nil")
	}
}

func TestErrorIsSentinel(t *testing.T) {
	err := fmt.Errorf("activate: %w", &Error{Kind: KindPermissionDenied, Err: errors.New("denied")})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("Expected errors.Is to match the permission sentinel")
	}
	if errors.Is(err, ErrDeviceBusy) {
		t.Error("Expected errors.Is not to match a different kind")
	}
}

func TestUserMessage(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Error("Expected empty message for nil")
	}
	msg := UserMessage(ErrPermissionDenied)
	if !strings.HasPrefix(msg, "Unable to access camera and microphone.") {
		t.Errorf("Unexpected permission message: %q", msg)
	}
	if !strings.Contains(msg, "allow camera and microphone permissions") {
		t.Errorf("Expected permission hint, got %q", msg)
	}
	if UserMessage(ErrRecorderStartFailure) != "Failed to start recording. Please try again." {
		t.Errorf("Unexpected recorder message: %q", UserMessage(ErrRecorderStartFailure))
	}
}
