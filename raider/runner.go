package raider

import (
	"context"
	"fmt"

	"github.com/raidersec/raider/flow"
	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/response"
	"github.com/raidersec/raider/session"
)

// defaultMaxSteps bounds how many flow transitions one Authenticate run
// may make before the runner assumes it is stuck ping-ponging between
// stages (e.g. a wrong-OTP loop) and aborts.
const defaultMaxSteps = 25

// Result is the outcome of a completed run.
type Result struct {
	Stopped      bool
	LastResponse *response.Response
}

// Runner drives a Graph against one Session.
type Runner struct {
	Graph    *Graph
	Session  *session.Session
	MaxSteps int
}

// NewRunner returns a Runner with the default step bound.
func NewRunner(g *Graph, s *session.Session) *Runner {
	return &Runner{Graph: g, Session: s, MaxSteps: defaultMaxSteps}
}

// Authenticate runs the authentication graph from its first flow to
// completion, following NextStage verdicts between flows and falling
// through to the next flow in list order on an implicit continue.
func (r *Runner) Authenticate(ctx context.Context) (*Result, error) {
	if len(r.Graph.Authentication) == 0 {
		return &Result{Stopped: true}, nil
	}

	current := r.Graph.Authentication[0]
	steps := 0
	var lastResp *response.Response

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		steps++
		if steps > r.maxSteps() {
			return nil, fmt.Errorf("authentication loop exceeded %d steps", r.maxSteps())
		}

		resp, verdict := r.runFlow(ctx, current)
		lastResp = resp

		switch verdict.Kind {
		case operation.Stop:
			return &Result{Stopped: true, LastResponse: lastResp}, nil
		case operation.Fail:
			return nil, verdict.Err
		case operation.Next:
			if next, ok := flowByName(r.Graph.Authentication, verdict.Stage); ok {
				current = next
				continue
			}
			if fn, ok := flowByName(r.Graph.Functions, verdict.Stage); ok {
				resp, err := r.runFunctionChain(ctx, fn, &steps)
				if err != nil {
					return nil, err
				}
				return &Result{Stopped: true, LastResponse: resp}, nil
			}
			return nil, fmt.Errorf("unknown stage %q", verdict.Stage)
		case operation.Continue:
			idx := indexOf(r.Graph.Authentication, current)
			if idx+1 < len(r.Graph.Authentication) {
				current = r.Graph.Authentication[idx+1]
				continue
			}
			return &Result{Stopped: true, LastResponse: lastResp}, nil
		default:
			return nil, fmt.Errorf("unrecognised verdict kind %d", verdict.Kind)
		}
	}
}

// RunFunction invokes a standalone, non-authentication flow by name.
func (r *Runner) RunFunction(ctx context.Context, name string) (*Result, error) {
	fn, ok := flowByName(r.Graph.Functions, name)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	steps := 0
	resp, err := r.runFunctionChain(ctx, fn, &steps)
	if err != nil {
		return nil, err
	}
	return &Result{Stopped: true, LastResponse: resp}, nil
}

// runFunctionChain runs start and follows any NextStage verdicts it
// produces within the functions list, sharing steps with the caller's
// loop-guard budget. A Continue or Stop verdict ends the chain.
func (r *Runner) runFunctionChain(ctx context.Context, start *flow.Flow, steps *int) (*response.Response, error) {
	current := start
	var lastResp *response.Response

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		*steps++
		if *steps > r.maxSteps() {
			return nil, fmt.Errorf("authentication loop exceeded %d steps", r.maxSteps())
		}

		resp, verdict := r.runFlow(ctx, current)
		lastResp = resp

		switch verdict.Kind {
		case operation.Stop, operation.Continue:
			return lastResp, nil
		case operation.Fail:
			return lastResp, verdict.Err
		case operation.Next:
			next, ok := flowByName(r.Graph.Functions, verdict.Stage)
			if !ok {
				return lastResp, fmt.Errorf("unknown function stage %q", verdict.Stage)
			}
			current = next
		default:
			return lastResp, fmt.Errorf("unrecognised verdict kind %d", verdict.Kind)
		}
	}
}

func (r *Runner) runFlow(ctx context.Context, f *flow.Flow) (*response.Response, operation.Verdict) {
	return f.Run(ctx, r.Session.Client, r.Graph.BaseURL, r.Session.UserData(), r.Session.Store)
}

// RunNamed runs the single flow named stage, searched first in the
// authentication list then in functions, and returns its verdict
// without following it any further. It is the low-level primitive the
// fuzz package chases NextStage verdicts one hop at a time with.
func (r *Runner) RunNamed(ctx context.Context, stage string) (*response.Response, operation.Verdict, error) {
	f, ok := flowByName(r.Graph.Authentication, stage)
	if !ok {
		f, ok = flowByName(r.Graph.Functions, stage)
	}
	if !ok {
		return nil, operation.Verdict{}, fmt.Errorf("unknown stage %q", stage)
	}
	resp, verdict := r.runFlow(ctx, f)
	return resp, verdict, nil
}

func (r *Runner) maxSteps() int {
	if r.MaxSteps <= 0 {
		return defaultMaxSteps
	}
	return r.MaxSteps
}
