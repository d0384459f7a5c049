package plugin

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/raidersec/raider/response"
)

// extracted is embedded by plugins whose value only ever arrives via
// ExtractOutput or explicit assignment. As an input they simply read
// back whatever the Store currently holds for their name.
type extracted struct{ base }

// ResolveInput implements InputResolver.
func (e *extracted) ResolveInput(_ context.Context, _ UserData, store *Store) (string, bool) {
	return store.Get(e.name)
}

// Regex extracts the first match of a capturing group from the response
// body.
type Regex struct {
	extracted
	re    *regexp.Regexp
	group int
}

// NewRegex compiles regex once and returns a Regex plugin that extracts
// capturing group number group (0-indexed into re.FindStringSubmatch,
// where index 0 is the whole match and 1 is the first group; group
// defaults to the first group when 0 is passed and the pattern has one).
func NewRegex(name, regex string, group int) *Regex {
	re := regexp.MustCompile(regex)
	if group == 0 && re.NumSubexp() > 0 {
		group = 1
	}
	return &Regex{
		extracted: extracted{base{name: name, flags: NeedsResponse}},
		re:        re,
		group:     group,
	}
}

// ExtractOutput implements OutputExtractor.
func (r *Regex) ExtractOutput(resp *response.Response, store *Store) (string, bool) {
	matches := r.re.FindStringSubmatch(resp.Text())
	if matches == nil || r.group >= len(matches) {
		logrus.WithField("plugin", r.name).Warn("regex not found in response body")
		return "", false
	}
	value := matches[r.group]
	store.Set(r.name, value)
	return value, true
}

// AttrMatch is either an exact string to compare against, or a compiled
// regex to apply to the candidate tag's attribute value.
type AttrMatch struct {
	exact string
	re    *regexp.Regexp
}

func (m AttrMatch) match(value string) bool {
	if m.re != nil {
		return m.re.MatchString(value)
	}
	return value == m.exact
}

// AttrExact builds an exact-match attribute predicate.
func AttrExact(value string) AttrMatch { return AttrMatch{exact: value} }

// AttrRegex builds a regex attribute predicate.
func AttrRegex(pattern string) AttrMatch { return AttrMatch{re: regexp.MustCompile(pattern)} }

// Html extracts an attribute (or, when Extract is "data", the inner
// text) of the first tag matching Tag and every predicate in Attrs.
type Html struct {
	extracted
	tag     string
	attrs   map[string]AttrMatch
	extract string
}

// NewHtml returns an Html plugin. attrs maps attribute names to
// predicates every candidate tag must satisfy; extract names the
// attribute to pull from the winning tag, or the literal string "data"
// to pull its inner text instead.
func NewHtml(name, tag string, attrs map[string]AttrMatch, extract string) *Html {
	return &Html{
		extracted: extracted{base{name: name, flags: NeedsResponse}},
		tag:       tag,
		attrs:     attrs,
		extract:   extract,
	}
}

// ExtractOutput implements OutputExtractor.
func (h *Html) ExtractOutput(resp *response.Response, store *Store) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
	if err != nil {
		logrus.WithError(err).WithField("plugin", h.name).Warn("failed to parse html body")
		return "", false
	}

	var value string
	found := false
	doc.Find(h.tag).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !h.matches(sel) {
			return true
		}
		if h.extract == "data" {
			value = sel.Text()
		} else {
			v, ok := sel.Attr(h.extract)
			if !ok {
				return true
			}
			value = v
		}
		found = true
		return false
	})

	if !found {
		logrus.WithField("plugin", h.name).Warn("no html tag matched")
		return "", false
	}
	store.Set(h.name, value)
	return value, true
}

func (h *Html) matches(sel *goquery.Selection) bool {
	for attr, predicate := range h.attrs {
		value, ok := sel.Attr(attr)
		if !ok || !predicate.match(value) {
			return false
		}
	}
	return true
}

// jsonSegment is one step of a Json plugin's path: either a map key or
// an array index, e.g. "env.production[0].field" walks key "env", key
// "production", index 0, key "field".
type jsonSegment struct {
	key     string
	index   int
	isIndex bool
}

var jsonIndexPattern = regexp.MustCompile(`\[(\d+)\]`)

// parseJSONPath splits a dotted, optionally bracket-indexed path into its
// segments, mirroring the original implementation's
// parse_json_filter/extract_json_field (raider/plugins/basic.py): each
// dot-separated part may carry one or more trailing "[N]" indices, which
// become their own segments after the part's key segment.
func parseJSONPath(path string) []jsonSegment {
	var segments []jsonSegment
	for _, part := range strings.Split(path, ".") {
		key := part
		var indices []string
		if loc := jsonIndexPattern.FindStringIndex(part); loc != nil {
			key = part[:loc[0]]
			indices = jsonIndexPattern.FindAllString(part[loc[0]:], -1)
		}
		if key != "" {
			segments = append(segments, jsonSegment{key: key})
		}
		for _, idx := range indices {
			n, err := strconv.Atoi(idx[1 : len(idx)-1])
			if err != nil {
				continue
			}
			segments = append(segments, jsonSegment{index: n, isIndex: true})
		}
	}
	return segments
}

// Json extracts the value at a dotted, optionally array-indexed path from
// a JSON response body, e.g. "data.items[0].id".
type Json struct {
	extracted
	path []jsonSegment
}

// NewJson returns a Json plugin that walks path.
func NewJson(name, path string) *Json {
	return &Json{
		extracted: extracted{base{name: name, flags: NeedsResponse}},
		path:      parseJSONPath(path),
	}
}

// ExtractOutput implements OutputExtractor.
func (j *Json) ExtractOutput(resp *response.Response, store *Store) (string, bool) {
	var parsed any
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		logrus.WithError(err).WithField("plugin", j.name).Warn("failed to parse json body")
		return "", false
	}

	current := parsed
	for _, seg := range j.path {
		if seg.isIndex {
			arr, ok := current.([]any)
			if !ok || seg.index >= len(arr) {
				logrus.WithField("plugin", j.name).Warn("json array index doesn't exist")
				return "", false
			}
			current = arr[seg.index]
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			logrus.WithField("plugin", j.name).Warn("json path missing intermediate key")
			return "", false
		}
		current, ok = m[seg.key]
		if !ok {
			logrus.WithField("plugin", j.name).Warn("json path missing intermediate key")
			return "", false
		}
	}

	value := stringifyJSON(current)
	store.Set(j.name, value)
	return value, true
}

func stringifyJSON(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
