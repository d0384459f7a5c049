package plugin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Variable reads a field from the active user's record, e.g. "username"
// or "password".
type Variable struct{ base }

// NewVariable returns a Variable plugin that reads the field named name.
func NewVariable(name string) *Variable {
	return &Variable{base{name: name, flags: NeedsUserData}}
}

// ResolveInput implements InputResolver.
func (v *Variable) ResolveInput(_ context.Context, user UserData, store *Store) (string, bool) {
	value, ok := user[v.name]
	if !ok {
		logrus.WithField("plugin", v.name).Warn("required user field missing")
		return "", false
	}
	store.Set(v.name, value)
	return value, true
}

// terminalMu serialises Prompt reads across concurrently running
// sessions, since they all share one process terminal.
var terminalMu sync.Mutex

// Prompt asks the operator for a value interactively. The value is
// cached in the session's Store for the remainder of the run: resolving
// the same Prompt plugin twice in one run reads the terminal only once.
type Prompt struct {
	base
	reader io.Reader
}

// NewPrompt returns a Prompt plugin that reads a line from os.Stdin.
func NewPrompt(name string) *Prompt {
	return &Prompt{base: base{name: name}, reader: os.Stdin}
}

// WithReader overrides the input source, for tests and non-interactive
// drivers.
func (p *Prompt) WithReader(r io.Reader) *Prompt {
	p.reader = r
	return p
}

// ResolveInput implements InputResolver. The terminal read runs on its
// own goroutine so a cancelled ctx can interrupt an operator who never
// answers, per the suspension-point contract (b).
func (p *Prompt) ResolveInput(ctx context.Context, _ UserData, store *Store) (string, bool) {
	if value, ok := store.Get(p.name); ok {
		return value, true
	}

	terminalMu.Lock()
	defer terminalMu.Unlock()

	result := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(p.reader)
		var value string
		for value == "" {
			fmt.Printf("%s = ", p.name)
			if !scanner.Scan() {
				break
			}
			value = strings.TrimSpace(scanner.Text())
		}
		result <- value
	}()

	select {
	case <-ctx.Done():
		logrus.WithField("plugin", p.name).Warn("prompt cancelled")
		return "", false
	case value := <-result:
		if value == "" {
			return "", false
		}
		store.Set(p.name, value)
		return value, true
	}
}

// Command runs a shell command and uses its trimmed stdout as its value.
// Unlike Prompt, Command always re-runs: the whole point is to pick up
// side effects (e.g. reading a freshly generated TOTP code) each time.
type Command struct {
	base
	cmd string
}

// NewCommand returns a Command plugin that runs cmd through "sh -c".
func NewCommand(name, cmd string) *Command {
	return &Command{base: base{name: name}, cmd: cmd}
}

// ResolveInput implements InputResolver.
func (c *Command) ResolveInput(ctx context.Context, _ UserData, store *Store) (string, bool) {
	out, err := exec.CommandContext(ctx, "sh", "-c", c.cmd).Output()
	if err != nil {
		logrus.WithError(err).WithField("plugin", c.name).Warn("command plugin failed")
		return "", false
	}
	value := strings.TrimRight(string(out), "\n")
	store.Set(c.name, value)
	return value, true
}

// Empty is a placeholder plugin carrying no intrinsic value of its own;
// it is filled by explicit assignment (e.g. from a fuzzing driver) or by
// a prior Flow's output binding landing in the Store under the same name.
type Empty struct{ base }

// NewEmpty returns an Empty plugin.
func NewEmpty(name string) *Empty {
	return &Empty{base{name: name}}
}

// ResolveInput implements InputResolver.
func (e *Empty) ResolveInput(_ context.Context, _ UserData, store *Store) (string, bool) {
	return store.Get(e.name)
}
