package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// Connectivity failure classes. Classify wraps the underlying error with
// one of these.
var (
	ErrUnreachable  = errors.New("model server unreachable")
	ErrForbidden    = errors.New("model server refused the request origin")
	ErrBadRequest   = errors.New("model server rejected the request")
	ErrModelMissing = errors.New("model not installed")
)

// StatusError is a non-2xx reply from the model server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model server status %d: %s", e.StatusCode, e.Body)
}

// Classify maps transport and HTTP failures onto the connectivity classes.
// Errors that fit none are returned unchanged; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, class := range []error{ErrUnreachable, ErrForbidden, ErrBadRequest, ErrModelMissing} {
		if errors.Is(err, class) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if class := classifyStatus(statusOf(err), err.Error()); class != nil {
		return fmt.Errorf("%w: %v", class, err)
	}
	var netErr net.Error
	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || errors.As(err, &opErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return err
}

func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classifyStatus(code int, msg string) error {
	switch {
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrModelMissing
	case code == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(msg), "not found") {
			return ErrModelMissing
		}
		return ErrBadRequest
	case code >= 500:
		return ErrUnreachable
	}
	return nil
}

// UserMessage turns an error into actionable text for the person chatting.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrForbidden):
		return "The model server refused this origin (403). Allow it, e.g. start Ollama with OLLAMA_ORIGINS=\"*\"."
	case errors.Is(err, ErrModelMissing):
		return "The selected model is not installed on the server. Pull it first, e.g. `ollama pull <model>`."
	case errors.Is(err, ErrBadRequest):
		return "The model server rejected the request (400). Check that the selected model supports this input, such as images."
	case errors.Is(err, ErrUnreachable):
		return "Cannot reach the model server. Make sure it is running and the URL is correct."
	}
	return "Request failed: " + err.Error()
}
