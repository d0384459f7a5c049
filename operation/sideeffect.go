package operation

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/raidersec/raider/plugin"
	"github.com/raidersec/raider/response"
)

// Save writes a plugin's value, a literal string, or the whole response
// body to a filesystem path.
type Save struct {
	path string
	// item is nil (whole body), a string literal, or a plugin.Plugin.
	item   any
	append bool
}

// NewSave returns a Save operation writing item's value to path,
// overwriting any existing file.
func NewSave(path string, item any) *Save { return &Save{path: path, item: item} }

// SaveAppend is like NewSave but appends instead of overwriting.
func SaveAppend(path string, item any) *Save { return &Save{path: path, item: item, append: true} }

// SaveBody returns a Save operation writing the entire response body.
func SaveBody(path string) *Save { return &Save{path: path} }

// SaveBodyAppend is like SaveBody but appends instead of overwriting.
func SaveBodyAppend(path string) *Save { return &Save{path: path, append: true} }

// Run implements Operation.
func (s *Save) Run(ctx context.Context, resp *response.Response, user plugin.UserData, store *plugin.Store) Verdict {
	var content string
	switch v := s.item.(type) {
	case nil:
		content = resp.Text()
	case string:
		content = v
	case plugin.Plugin:
		value, ok := plugin.ResolveValue(ctx, v, user, store)
		if !ok {
			logrus.WithField("plugin", v.Name()).Warn("save: plugin has no value, writing empty string")
		}
		content = value
	default:
		return FailVerdict(fmt.Errorf("save: unsupported content type %T", s.item))
	}

	if err := ctx.Err(); err != nil {
		return FailVerdict(fmt.Errorf("save: %w", err))
	}

	flags := os.O_CREATE | os.O_WRONLY
	if s.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return FailVerdict(fmt.Errorf("save: %w", err))
	}
	defer f.Close()

	if _, err := f.WriteString(content + "\n"); err != nil {
		return FailVerdict(fmt.Errorf("save: %w", err))
	}
	return ContinueVerdict()
}

// printMode selects what a Print operation prints.
type printMode int

const (
	printItems printMode = iota
	printBody
	printHeaders
	printCookies
)

// Print writes values to stdout. Constructed either with NewPrint for a
// fixed list of literals/plugins, or with one of the PrintBody/
// PrintHeaders/PrintCookies variants for response-derived output.
type Print struct {
	mode  printMode
	items []any // string or plugin.Plugin; used by printItems
	names []string
}

// NewPrint returns a Print operation that writes each item on its own
// line: literal strings verbatim, plugins as "name = value".
func NewPrint(items ...any) *Print { return &Print{mode: printItems, items: items} }

// PrintBody returns a Print operation that writes the response body.
func PrintBody() *Print { return &Print{mode: printBody} }

// PrintHeaders returns a Print operation that writes response headers.
// With no names, every header is printed.
func PrintHeaders(names ...string) *Print { return &Print{mode: printHeaders, names: names} }

// PrintCookies returns a Print operation that writes response cookies.
// With no names, every cookie is printed.
func PrintCookies(names ...string) *Print { return &Print{mode: printCookies, names: names} }

// Run implements Operation.
func (p *Print) Run(ctx context.Context, resp *response.Response, user plugin.UserData, store *plugin.Store) Verdict {
	switch p.mode {
	case printBody:
		fmt.Println(resp.Text())
	case printHeaders:
		if len(p.names) == 0 {
			for name, values := range resp.Header {
				for _, v := range values {
					fmt.Println(name + ": " + v)
				}
			}
			return ContinueVerdict()
		}
		for _, name := range p.names {
			if v, ok := resp.HeaderValue(name); ok {
				fmt.Println(name + ": " + v)
			}
		}
	case printCookies:
		if len(p.names) == 0 {
			for _, c := range resp.Cookies {
				fmt.Println(c.Name + ": " + c.Value)
			}
			return ContinueVerdict()
		}
		for _, name := range p.names {
			if v, ok := resp.Cookie(name); ok {
				fmt.Println(name + ": " + v)
			}
		}
	default:
		for _, item := range p.items {
			switch v := item.(type) {
			case string:
				fmt.Println(v)
			case plugin.Plugin:
				value, _ := plugin.ResolveValue(ctx, v, user, store)
				fmt.Println(v.Name() + " = " + value)
			}
		}
	}
	return ContinueVerdict()
}
