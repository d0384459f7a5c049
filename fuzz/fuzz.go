// Package fuzz drives wordlist substitution through the same
// Flow/Operation surface the rest of Raider runs on: a fuzzing point is
// named by its plugin, a wordlist supplies the values, and each case
// is run through either a standalone function flow or one stage of the
// authentication graph. It implements no mutation strategy beyond
// substituting an existing plugin's value.
package fuzz

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/raider"
	"github.com/raidersec/raider/response"
)

// Processor rewrites the wordlist entry before it replaces the fuzzing
// point's value. Prepend and Append mirror set_input_file's prepend/
// append flags; Replace (the default) substitutes the entry outright.
type Processor func(original, word string) string

func Prepend(original, word string) string { return word + original }
func Append(original, word string) string  { return original + word }
func Replace(_, word string) string        { return word }

// Case is one fuzz attempt. ID is a fresh uuid per case so callers can
// name per-case artifacts (Save paths, report files) without
// collisions.
type Case struct {
	ID    string
	Value string
}

// Report is the outcome of running one Case.
type Report struct {
	Case     Case
	Response *response.Response
	Verdict  operation.Verdict
	Err      error
}

// LoadWordlist reads one word per line from path, skipping blank lines.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fuzz: loading wordlist: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fuzz: loading wordlist: %w", err)
	}
	return words, nil
}

// Cases builds one Case per word, applying proc to original (the
// fuzzing point's value before fuzzing started). A nil proc replaces
// the value outright.
func Cases(words []string, original string, proc Processor) []Case {
	if proc == nil {
		proc = Replace
	}
	cases := make([]Case, 0, len(words))
	for _, w := range words {
		cases = append(cases, Case{ID: uuid.NewString(), Value: proc(original, w)})
	}
	return cases
}

// Function fuzzes flowName as a standalone function, blind to the
// authentication graph: pluginName's stored value is overwritten with
// each case's value and flowName is run once per case. Mirrors
// attack_function, which fuzzes an already-authenticated Flow directly
// without consulting the authentication state machine.
func Function(ctx context.Context, r *raider.Runner, flowName, pluginName string, cases []Case) ([]Report, error) {
	reports := make([]Report, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r.Session.Store.Set(pluginName, c.Value)
		resp, verdict, err := r.RunNamed(ctx, flowName)
		reports = append(reports, Report{Case: c, Response: resp, Verdict: verdict, Err: err})
		logrus.WithFields(logrus.Fields{"case": c.ID, "flow": flowName}).Debug("fuzz case executed")
	}
	return reports, nil
}

// Authentication fuzzes flowName as one stage of the authentication
// graph. It first drives the graph from its start stage to flowName
// once, sharing that session state across every case, then for each
// case overrides pluginName and reruns flowName, chasing any NextStage
// verdict across the graph until it lands back on flowName or reaches
// a terminal verdict. Mirrors attack_authentication.
func Authentication(ctx context.Context, r *raider.Runner, flowName, pluginName string, cases []Case) ([]Report, error) {
	if err := driveTo(ctx, r, flowName); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r.Session.Store.Set(pluginName, c.Value)
		resp, verdict, err := chase(ctx, r, flowName, flowName)
		reports = append(reports, Report{Case: c, Response: resp, Verdict: verdict, Err: err})
		logrus.WithFields(logrus.Fields{"case": c.ID, "flow": flowName}).Debug("fuzz case executed")
	}
	return reports, nil
}

// driveTo runs the authentication graph from its first stage, following
// Next and Continue verdicts, until the current stage is target.
func driveTo(ctx context.Context, r *raider.Runner, target string) error {
	graph := r.Graph
	if len(graph.Authentication) == 0 {
		return fmt.Errorf("fuzz: authentication graph is empty")
	}
	current := graph.Authentication[0].Name
	steps := 0
	for current != target {
		if err := ctx.Err(); err != nil {
			return err
		}
		steps++
		if r.MaxSteps > 0 && steps > r.MaxSteps {
			return fmt.Errorf("fuzz: could not reach stage %q within %d steps", target, r.MaxSteps)
		}
		_, verdict, err := r.RunNamed(ctx, current)
		if err != nil {
			return err
		}
		switch verdict.Kind {
		case operation.Next:
			current = verdict.Stage
		case operation.Continue:
			current, err = nextAuthenticationStage(graph, current)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("fuzz: reached a terminal verdict before stage %q", target)
		}
	}
	return nil
}

// chase runs start and, while it keeps producing NextStage verdicts
// other than target, follows them, bounded by the runner's step budget.
// Any other verdict (Continue, Stop, Fail) or a Next back to target
// ends the chase.
func chase(ctx context.Context, r *raider.Runner, start, target string) (*response.Response, operation.Verdict, error) {
	current := start
	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, operation.Verdict{}, err
		}
		steps++
		if r.MaxSteps > 0 && steps > r.MaxSteps {
			return nil, operation.Verdict{}, fmt.Errorf("fuzz: chase exceeded %d steps without returning to %q", r.MaxSteps, target)
		}
		resp, verdict, err := r.RunNamed(ctx, current)
		if err != nil {
			return resp, verdict, err
		}
		if verdict.Kind != operation.Next || verdict.Stage == target {
			return resp, verdict, nil
		}
		current = verdict.Stage
	}
}

func nextAuthenticationStage(g *raider.Graph, name string) (string, error) {
	for i, f := range g.Authentication {
		if f.Name != name {
			continue
		}
		if i+1 < len(g.Authentication) {
			return g.Authentication[i+1].Name, nil
		}
		return "", fmt.Errorf("fuzz: %q is the last authentication stage", name)
	}
	return "", fmt.Errorf("fuzz: unknown authentication stage %q", name)
}
