package audit

import "testing"

const (
	redactedValue       = "[REDACTED]"
	eventTestDurationMS = 100
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("run_question")

	if event.ToolName != "run_question" {
		t.Errorf("ToolName = %q, want %q", event.ToolName, "run_question")
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if other := NewEvent("run_question"); other.ID == event.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEvent_Builders(t *testing.T) {
	event := NewEvent("run_question").
		WithQuestion("GeneQuestions.ByOrganism").
		WithParameters(map[string]any{"question": "GeneQuestions.ByOrganism", "token": "abc"}).
		WithResult(false, "no such question", eventTestDurationMS)

	if event.Question != "GeneQuestions.ByOrganism" {
		t.Errorf("Question = %q", event.Question)
	}
	if event.Parameters["token"] != redactedValue {
		t.Errorf("token = %v, want redacted", event.Parameters["token"])
	}
	if event.Success {
		t.Error("Success should be false")
	}
	if event.ErrorMessage != "no such question" {
		t.Errorf("ErrorMessage = %q", event.ErrorMessage)
	}
	if event.DurationMS != eventTestDurationMS {
		t.Errorf("DurationMS = %d, want %d", event.DurationMS, eventTestDurationMS)
	}
}

func TestSanitizeParameters(t *testing.T) {
	if SanitizeParameters(nil) != nil {
		t.Error("nil params should stay nil")
	}

	params := map[string]any{
		"question": "GeneQuestions.ByOrganism",
		"password": "hunter2",
		"params": map[string]any{
			"organism": "pfal",
			"secret":   "s3cr3t",
		},
	}
	got := SanitizeParameters(params)

	if got["question"] != "GeneQuestions.ByOrganism" {
		t.Errorf("question = %v", got["question"])
	}
	if got["password"] != redactedValue {
		t.Errorf("password = %v, want redacted", got["password"])
	}
	nested, ok := got["params"].(map[string]any)
	if !ok {
		t.Fatalf("params = %T, want map", got["params"])
	}
	if nested["organism"] != "pfal" {
		t.Errorf("organism = %v", nested["organism"])
	}
	if nested["secret"] != redactedValue {
		t.Errorf("nested secret = %v, want redacted", nested["secret"])
	}
	if params["password"] != "hunter2" {
		t.Error("input map was modified")
	}
}
