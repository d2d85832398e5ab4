package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/slotsync/errors"
)

// ErrorHandler prints user-friendly messages for coded errors.
type ErrorHandler struct {
	Verbose bool
	Writer  io.Writer
}

// NewErrorHandler writes to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Writer:  os.Stderr,
	}
}

// Handle prints a message for err and returns it unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	w := h.Writer
	syncErr, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(w, "❌ Configuration not found. Create slotsync.yml or pass --config.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(w, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(w, "Run 'slotsync config validate' for details.\n")

	case errors.ErrCodeFetchFailed:
		fmt.Fprintf(w, "❌ Could not load time slots: %v\n", err)
		if url, ok := detail(syncErr, "url"); ok {
			fmt.Fprintf(w, "Check that the API at %s is reachable (endpoint.base_url).\n", url)
		}

	case errors.ErrCodeNormalizeFailed:
		fmt.Fprintf(w, "❌ The API returned a malformed time slot: %v\n", err)

	case errors.ErrCodeEndpointInvalid:
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintf(w, "Set endpoint.stream_url to an http(s) or ws(s) URL.\n")

	case errors.ErrCodeMaxReconnectAttempts:
		fmt.Fprintf(w, "❌ Live updates stopped: %v\n", err)
		fmt.Fprintf(w, "Raise stream.max_attempts or restart the watch.\n")

	default:
		fmt.Fprintf(w, "❌ Error: %v\n", err)
	}

	if h.Verbose && syncErr != nil {
		fmt.Fprintf(w, "\nError details:\n%s\n", syncErr.ToJSON())
	}
	return err
}

func detail(e *errors.SyncError, key string) (interface{}, bool) {
	if e == nil || e.Details == nil {
		return nil, false
	}
	v, ok := e.Details[key]
	return v, ok
}
