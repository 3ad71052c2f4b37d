// Package bridge carries the request/response messages between the chat
// side, the extraction core and the privileged capture layer.
package bridge

import (
	"encoding/json"

	"github.com/hyperifyio/pagelens/internal/snapshot"
)

// Actions understood by Handler.
const (
	ActionExtractContent    = "extractContent"
	ActionCaptureScreenshot = "captureScreenshot"
)

// Request is the envelope every message uses.
type Request struct {
	Action             string `json:"action"`
	IncludeScreenshots bool   `json:"includeScreenshots,omitempty"`
}

// ExtractResponse answers extractContent.
type ExtractResponse struct {
	Success bool                   `json:"success"`
	Data    *snapshot.PageSnapshot `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ScreenshotResponse answers captureScreenshot. A nil Screenshot means the
// capture failed or was denied.
type ScreenshotResponse struct {
	Screenshot *string `json:"screenshot"`
}

// ErrorResponse answers malformed or unknown requests.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(ErrorResponse{Error: "encode response: " + err.Error()})
	}
	return b
}
