package audit

import (
	"time"

	"github.com/google/uuid"
)

// NewEvent creates a new audit event for a call to toolName.
func NewEvent(toolName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		ToolName:  toolName,
	}
}

// WithQuestion records the question the call ran.
func (e *Event) WithQuestion(question string) *Event {
	e.Question = question
	return e
}

// WithParameters adds the call arguments, redacting sensitive ones.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// SanitizeParameters returns a copy of params with sensitive values
// replaced. Nested maps, such as question params, are sanitized too.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sensitiveKeys := map[string]bool{
		"password":      true,
		"secret":        true,
		"token":         true,
		"api_key":       true,
		"authorization": true,
		"credentials":   true,
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		switch {
		case sensitiveKeys[k]:
			sanitized[k] = "[REDACTED]"
		default:
			if nested, ok := v.(map[string]any); ok {
				v = SanitizeParameters(nested)
			}
			sanitized[k] = v
		}
	}
	return sanitized
}
