// Package config is the YAML front-end that turns a project directory
// into a raider.Graph plus a user.Store. It is a deliberately swappable
// adapter: nothing in plugin/request/operation/flow/raider/session
// imports it.
package config

// Document is the top-level shape of one project's merged YAML config.
// A project directory may split this across several *.yaml files; each
// file is unmarshalled on its own and the results are merged (see Load).
type Document struct {
	BaseURL  string                `yaml:"base_url"`
	Plugins  []PluginDoc           `yaml:"plugins"`
	Requests map[string]RequestDoc `yaml:"requests"`
	Flows    FlowsDoc              `yaml:"flows"`
	Users    UsersDoc              `yaml:"users"`
}

// PluginDoc describes one plugin. Type selects which fields apply; see
// buildSimplePlugin and buildDependentPlugin for the mapping.
type PluginDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// regex
	Pattern string `yaml:"pattern"`
	Group   int    `yaml:"group"`

	// html
	Tag     string             `yaml:"tag"`
	Attrs   map[string]AttrDoc `yaml:"attrs"`
	Extract string             `yaml:"extract"`

	// json
	Path string `yaml:"path"`

	// cookie / header literal default; alter prepend/append text
	Value string `yaml:"value"`

	// basicauth
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// bearerauth / alter / urlparser: name of another plugin
	Token  string `yaml:"token"`
	Parent string `yaml:"parent"`

	// command
	Cmd string `yaml:"cmd"`

	// combine
	Items []string `yaml:"items"`

	// alter
	Op  string `yaml:"op"` // prepend, append, replace
	Old string `yaml:"old"`
	New string `yaml:"new"`

	// urlparser
	Component string `yaml:"component"`
}

// AttrDoc is one Html attribute predicate: exactly one of Exact/Regex
// should be set.
type AttrDoc struct {
	Exact string `yaml:"exact"`
	Regex string `yaml:"regex"`
}

// RequestDoc describes one Request template.
type RequestDoc struct {
	Method  string   `yaml:"method"`
	URL     string   `yaml:"url"`
	Path    string   `yaml:"path"`
	Cookies []string `yaml:"cookies"`
	Headers []string `yaml:"headers"`
	Body    *BodyDoc `yaml:"body"`
}

// BodyDoc describes a Request's body. Type is "form", "json", or "raw".
// Fields keys/values may reference a plugin by name with a leading "$".
type BodyDoc struct {
	Type   string            `yaml:"type"`
	Fields map[string]string `yaml:"fields"`
	Raw    string            `yaml:"raw"`
}

// FlowsDoc splits the project's flows into the ordered authentication
// sequence and the standalone functions.
type FlowsDoc struct {
	Authentication []FlowDoc `yaml:"authentication"`
	Functions      []FlowDoc `yaml:"functions"`
}

// FlowDoc describes one Flow.
type FlowDoc struct {
	Name       string         `yaml:"name"`
	Request    string         `yaml:"request"`
	Outputs    []string       `yaml:"outputs"`
	Operations []OperationDoc `yaml:"operations"`
}

// OperationDoc is a tagged union of the operation kinds; exactly one
// field should be set per entry.
type OperationDoc struct {
	Next         *string  `yaml:"next"`
	Error        *string  `yaml:"error"`
	Print        []string `yaml:"print"`
	PrintBody    bool     `yaml:"print_body"`
	PrintHeaders []string `yaml:"print_headers"`
	PrintCookies []string `yaml:"print_cookies"`
	Save         *SaveDoc `yaml:"save"`
	Http         *HttpDoc `yaml:"http"`
	Grep         *GrepDoc `yaml:"grep"`
}

// SaveDoc describes a Save operation. An empty Plugin saves the whole
// response body.
type SaveDoc struct {
	Path   string `yaml:"path"`
	Plugin string `yaml:"plugin"`
	Append bool   `yaml:"append"`
}

// HttpDoc describes an Http conditional operation.
type HttpDoc struct {
	Status    int            `yaml:"status"`
	Action    []OperationDoc `yaml:"action"`
	Otherwise []OperationDoc `yaml:"otherwise"`
}

// GrepDoc describes a Grep conditional operation.
type GrepDoc struct {
	Regex     string         `yaml:"regex"`
	Action    []OperationDoc `yaml:"action"`
	Otherwise []OperationDoc `yaml:"otherwise"`
}

// UsersDoc lists every configured user plus which one starts active.
type UsersDoc struct {
	Active string    `yaml:"active"`
	List   []UserDoc `yaml:"list"`
}

// UserDoc describes one user record.
type UserDoc struct {
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Data     map[string]string `yaml:"data"`
}
