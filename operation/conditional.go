package operation

import (
	"context"
	"fmt"
	"regexp"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/response"
)

// Http branches on the response status code.
type Http struct {
	status    int
	action    []Operation
	otherwise []Operation
}

// NewHttp returns an Http operation: action runs if the response status
// equals status, otherwise runs otherwise. Either may be nil.
func NewHttp(status int, action, otherwise []Operation) *Http {
	return &Http{status: status, action: action, otherwise: otherwise}
}

// Run implements Operation.
func (h *Http) Run(ctx context.Context, resp *response.Response, user plugin.UserData, store *plugin.Store) Verdict {
	if resp == nil {
		return FailVerdict(fmt.Errorf("http operation: no response available"))
	}
	if resp.StatusCode == h.status {
		return Execute(ctx, h.action, resp, user, store)
	}
	return Execute(ctx, h.otherwise, resp, user, store)
}

// Grep branches on whether the response body matches a regular
// expression.
type Grep struct {
	re        *regexp.Regexp
	action    []Operation
	otherwise []Operation
}

// NewGrep compiles pattern once and returns a Grep operation: action
// runs if the response body matches pattern, otherwise runs otherwise.
func NewGrep(pattern string, action, otherwise []Operation) *Grep {
	return &Grep{re: regexp.MustCompile(pattern), action: action, otherwise: otherwise}
}

// Run implements Operation.
func (g *Grep) Run(ctx context.Context, resp *response.Response, user plugin.UserData, store *plugin.Store) Verdict {
	if resp == nil {
		return FailVerdict(fmt.Errorf("grep operation: no response available"))
	}
	if g.re.MatchString(resp.Text()) {
		return Execute(ctx, g.action, resp, user, store)
	}
	return Execute(ctx, g.otherwise, resp, user, store)
}
