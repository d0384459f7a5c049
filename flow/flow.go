// Package flow ties one stage together: materialise its request, run
// the HTTP round trip, bind the declared outputs from the response, and
// evaluate its operations to produce a control-flow verdict.
package flow

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/raidersec/raider/operation"
	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/request"
	"github.com/raidersec/raider/response"
)

// Flow is one stage of an authentication graph or a standalone
// function: a Request template, the plugins its response should fill,
// and the operations to run once it has.
//
// A Flow is read-only after construction; Run never mutates it. All
// mutation (plugin values, cookies) lands in the caller-supplied store
// and transport.
type Flow struct {
	Name       string
	Request    *request.Request
	Outputs    []plugin.Plugin
	Operations []operation.Operation
}

// New returns a Flow.
func New(name string, req *request.Request, outputs []plugin.Plugin, ops []operation.Operation) *Flow {
	return &Flow{Name: name, Request: req, Outputs: outputs, Operations: ops}
}

// Run sends f's request, binds its declared outputs from the response,
// and evaluates its operations. The returned response is nil only when
// the request itself could not be sent, in which case the verdict is
// Fail.
func (f *Flow) Run(ctx context.Context, transport request.Transport, baseURL string, user plugin.UserData, store *plugin.Store) (*response.Response, operation.Verdict) {
	resp, err := f.Request.Send(ctx, transport, baseURL, user, store)
	if err != nil {
		return nil, operation.FailVerdict(err)
	}

	for _, out := range f.Outputs {
		extractor, ok := out.(plugin.OutputExtractor)
		if !ok {
			logrus.WithField("plugin", out.Name()).Warn("flow output is not response-extractable, skipped")
			continue
		}
		if _, ok := extractor.ExtractOutput(resp, store); !ok {
			logrus.WithFields(logrus.Fields{"flow": f.Name, "plugin": out.Name()}).Warn("flow output not found in response")
		}
	}

	verdict := operation.Execute(ctx, f.Operations, resp, user, store)
	return resp, verdict
}
