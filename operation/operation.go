// Package operation implements the post-response actions a Flow
// evaluates once its request has completed: conditional branches on the
// response (Http, Grep), side effects (Print, Save), and the
// control-flow primitives (NextStage, Error) that decide what the
// runner does next.
package operation

import (
	"context"
	"errors"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/response"
)

// VerdictKind distinguishes the possible outcomes of running a list of
// operations.
type VerdictKind int

const (
	// Continue means none of the operations in this list produced a
	// terminal decision; the caller (a higher Http/Grep branch, or the
	// runner) proceeds with whatever it would otherwise do next.
	Continue VerdictKind = iota
	// Next means a NextStage(name) fired with a non-empty name.
	Next
	// Stop means a NextStage("") fired, or some other operation decided
	// to end the run cleanly.
	Stop
	// Fail means an Error operation fired, or an operation could not
	// run (e.g. Http/Grep with no response available).
	Fail
)

// Verdict is the result of running one Operation or a list of them.
type Verdict struct {
	Kind  VerdictKind
	Stage string
	Err   error
}

// ContinueVerdict reports that evaluation should proceed unchanged.
func ContinueVerdict() Verdict { return Verdict{Kind: Continue} }

// NextVerdict reports a NextStage decision. An empty stage name is a
// clean stop, matching the authentication graph's "no further stage"
// convention.
func NextVerdict(stage string) Verdict {
	if stage == "" {
		return Verdict{Kind: Stop}
	}
	return Verdict{Kind: Next, Stage: stage}
}

// StopVerdict reports a clean stop.
func StopVerdict() Verdict { return Verdict{Kind: Stop} }

// FailVerdict reports a terminal failure.
func FailVerdict(err error) Verdict { return Verdict{Kind: Fail, Err: err} }

// Operation is one post-response action. Implementations that do not
// need the HTTP response (e.g. NextStage) ignore the resp argument.
type Operation interface {
	Run(ctx context.Context, resp *response.Response, user plugin.UserData, store *plugin.Store) Verdict
}

// Execute runs ops in order, stopping at the first non-Continue
// verdict. Mirrors the original's execute_actions: an operation list is
// just a sequence where the first decision wins.
func Execute(ctx context.Context, ops []Operation, resp *response.Response, user plugin.UserData, store *plugin.Store) Verdict {
	for _, op := range ops {
		v := op.Run(ctx, resp, user, store)
		if v.Kind != Continue {
			return v
		}
	}
	return ContinueVerdict()
}

// NextStage decides the next flow to run by name, or ends the run when
// name is empty.
type NextStage struct {
	stage string
}

// Goto returns a NextStage operation targeting stage.
func Goto(stage string) *NextStage { return &NextStage{stage: stage} }

// Run implements Operation.
func (n *NextStage) Run(_ context.Context, _ *response.Response, _ plugin.UserData, _ *plugin.Store) Verdict {
	return NextVerdict(n.stage)
}

// Error ends the run with a failure verdict carrying message.
type Error struct {
	message string
}

// NewError returns an Error operation.
func NewError(message string) *Error { return &Error{message: message} }

// Run implements Operation.
func (e *Error) Run(_ context.Context, _ *response.Response, _ plugin.UserData, _ *plugin.Store) Verdict {
	return FailVerdict(errors.New(e.message))
}
