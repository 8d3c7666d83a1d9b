package gemini

import "encoding/json"

// GenerateContentResponse is the body of a generateContent result
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// GenerateError wraps extraction failures with the raw response body for
// diagnosis
type GenerateError struct {
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	RawBody    json.RawMessage `json:"raw_body,omitempty"`
}

func (e *GenerateError) Error() string {
	return e.Message
}

// GetRawResponseBody returns the raw response body if available
func (e *GenerateError) GetRawResponseBody() json.RawMessage {
	return e.RawBody
}
