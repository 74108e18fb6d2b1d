package types

import (
	"errors"
	"fmt"
)

// ErrorKind tags a failure of the extraction cycle.
type ErrorKind string

const (
	ErrorWrongPage          ErrorKind = "WRONG_PAGE"
	ErrorChannelUnavailable ErrorKind = "CHANNEL_UNAVAILABLE"
	ErrorEmptyResult        ErrorKind = "EMPTY_RESULT"
	ErrorServer             ErrorKind = "SERVER_ERROR"
	ErrorNetwork            ErrorKind = "NETWORK_ERROR"
	ErrorInternal           ErrorKind = "INTERNAL_ERROR"
)

// Hint identifies the remediation shown next to an error.
type Hint string

const (
	HintOpenTargetPage Hint = "open_target_page"
	HintReloadPage     Hint = "reload_page"
	HintOpenDialog     Hint = "open_dialog"
	HintCheckServer    Hint = "check_server"
	HintTimeout        Hint = "timeout"
	HintRetry          Hint = "retry"
)

var hintText = map[Hint]string{
	HintOpenTargetPage: "Open a conversation on the chat site and try again.",
	HintReloadPage:     "Reload the chat page (or restart the page responder) and retry.",
	HintOpenDialog:     "Open a dialog with messages and retry.",
	HintCheckServer:    "Check that the reply server is running, reachable at the configured URL, and that its API key is valid.",
	HintTimeout:        "The reply server did not answer in time. Check its load and retry.",
	HintRetry:          "Press retry to run the cycle again.",
}

// Text returns the human-readable remediation.
func (h Hint) Text() string {
	if s, ok := hintText[h]; ok {
		return s
	}
	return hintText[HintRetry]
}

// Error is the single failure shape that reaches the UI controller.
type Error struct {
	Kind    ErrorKind
	Hint    Hint
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: ...}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind
}

// Display renders the message followed by its remediation hint.
func (e *Error) Display() string {
	if e == nil {
		return ""
	}
	return e.Message + "\n" + e.Hint.Text()
}

func newError(kind ErrorKind, hint Hint, msg string, err error) *Error {
	return &Error{Kind: kind, Hint: hint, Message: msg, Err: err}
}

// WrongPage reports that the active tab is not on an eligible host.
func WrongPage(url string) *Error {
	if url == "" {
		return newError(ErrorWrongPage, HintOpenTargetPage, "no chat page is open", nil)
	}
	return newError(ErrorWrongPage, HintOpenTargetPage, fmt.Sprintf("%s is not a supported chat page", url), nil)
}

// ChannelUnavailable reports that no page responder answered.
func ChannelUnavailable(err error) *Error {
	return newError(ErrorChannelUnavailable, HintReloadPage, "the chat page is not responding", err)
}

// EmptyResult reports a dialog with no extractable messages.
func EmptyResult() *Error {
	return newError(ErrorEmptyResult, HintOpenDialog, "no messages found in the current dialog", nil)
}

// ServerError reports a non-success HTTP status from the reply service.
func ServerError(message string) *Error {
	return newError(ErrorServer, HintCheckServer, message, nil)
}

// NetworkError reports a request that got no response at all.
func NetworkError(err error) *Error {
	return newError(ErrorNetwork, HintCheckServer, "could not reach the reply server", err)
}

// TimeoutError reports a request that exceeded its deadline.
func TimeoutError(err error) *Error {
	return newError(ErrorNetwork, HintTimeout, "the reply server timed out", err)
}

// AsError returns err as a typed *Error, wrapping anything unclassified as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return newError(ErrorInternal, HintRetry, err.Error(), err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Kind == kind
}
