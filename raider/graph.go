// Package raider drives an authentication graph to completion: a
// Runner walks the ordered list of authentication Flows according to
// the verdicts each one produces, with a separate list of standalone
// "functions" invocable by name once authentication has succeeded.
package raider

import "github.com/raidersec/raider/flow"

// Graph is the flow-execution engine's view of one project: the
// authentication sequence, the standalone functions, and the base URL
// relative requests resolve against. Nothing here is mutated once
// built; per-run state lives in a session.Session.
type Graph struct {
	BaseURL        string
	Authentication []*flow.Flow
	Functions      []*flow.Flow
}

func flowByName(flows []*flow.Flow, name string) (*flow.Flow, bool) {
	for _, f := range flows {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func indexOf(flows []*flow.Flow, target *flow.Flow) int {
	for i, f := range flows {
		if f == target {
			return i
		}
	}
	return -1
}
