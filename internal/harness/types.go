package harness

import (
	"fmt"

	"github.com/roach88/crudkit/internal/value"
)

// Outcomes recorded in the trace besides resource error codes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64        `json:"seq"`
	Op      string       `json:"op"`      // "resource.op"
	Args    value.Object `json:"args"`    // id, body, query, field as given
	Outcome string       `json:"outcome"` // "ok", a resource error code, or "error"
	Message string       `json:"message,omitempty"`
	Result  value.Value  `json:"result,omitempty"`
}

// canonical renders the event as a Value for golden comparison.
func (e TraceEvent) canonical() value.Object {
	obj := value.Object{
		"seq":     value.Int(e.Seq),
		"op":      value.String(e.Op),
		"args":    e.Args,
		"outcome": value.String(e.Outcome),
	}
	if e.Message != "" {
		obj["message"] = value.String(e.Message)
	}
	if e.Result != nil {
		obj["result"] = e.Result
	}
	return obj
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per executed step.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddErrorf is AddError with formatting.
func (r *Result) AddErrorf(format string, args ...any) {
	r.AddError(fmt.Sprintf(format, args...))
}
