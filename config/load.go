package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raidersec/raider/flow"
	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/raider"
	"github.com/raidersec/raider/request"
	"github.com/raidersec/raider/user"
)

// Load reads every *.yaml/*.yml file directly under dir, merges them
// into one Document, and builds the raider.Graph and user.Store they
// describe. Files are merged in sorted filename order so a project can
// split plugins/requests/flows/users across several files without
// needing to care which one wins a given top-level key (later files
// append to list-typed keys; map-typed keys from later files override
// same-named entries from earlier ones).
func Load(dir string) (*raider.Graph, *user.Store, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("config: scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("config: no yaml files found in %s", dir)
	}

	merged := Document{Requests: map[string]RequestDoc{}}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		mergeDocument(&merged, &doc)
	}

	return build(merged)
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func mergeDocument(dst, src *Document) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	dst.Plugins = append(dst.Plugins, src.Plugins...)
	for name, r := range src.Requests {
		dst.Requests[name] = r
	}
	dst.Flows.Authentication = append(dst.Flows.Authentication, src.Flows.Authentication...)
	dst.Flows.Functions = append(dst.Flows.Functions, src.Flows.Functions...)
	if src.Users.Active != "" {
		dst.Users.Active = src.Users.Active
	}
	dst.Users.List = append(dst.Users.List, src.Users.List...)
}

func build(doc Document) (*raider.Graph, *user.Store, error) {
	registry, err := buildPlugins(doc.Plugins)
	if err != nil {
		return nil, nil, err
	}

	requests, err := buildRequests(doc.Requests, registry)
	if err != nil {
		return nil, nil, err
	}

	authentication, err := buildFlows(doc.Flows.Authentication, requests, registry)
	if err != nil {
		return nil, nil, err
	}
	functions, err := buildFlows(doc.Flows.Functions, requests, registry)
	if err != nil {
		return nil, nil, err
	}

	graph := &raider.Graph{
		BaseURL:        doc.BaseURL,
		Authentication: authentication,
		Functions:      functions,
	}

	users := make([]*user.User, 0, len(doc.Users.List))
	for _, u := range doc.Users.List {
		users = append(users, user.New(u.Username, u.Password, u.Data))
	}
	store, err := user.NewStore(users, doc.Users.Active)
	if err != nil {
		return nil, nil, err
	}

	return graph, store, nil
}

func buildFlows(docs []FlowDoc, requests map[string]*request.Request, registry map[string]plugin.Plugin) ([]*flow.Flow, error) {
	flows := make([]*flow.Flow, 0, len(docs))
	for _, d := range docs {
		req, ok := requests[d.Request]
		if !ok {
			return nil, fmt.Errorf("config: flow %q: unknown request %q", d.Name, d.Request)
		}
		outputs, err := resolvePluginRefs(d.Outputs, registry)
		if err != nil {
			return nil, fmt.Errorf("config: flow %q: %w", d.Name, err)
		}
		ops, err := buildOperations(d.Operations, registry)
		if err != nil {
			return nil, fmt.Errorf("config: flow %q: %w", d.Name, err)
		}
		flows = append(flows, flow.New(d.Name, req, outputs, ops))
	}
	return flows, nil
}
