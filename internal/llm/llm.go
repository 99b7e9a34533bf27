// Package llm defines the language model gateway used by the recommender
// and the four fixed prompts it sends.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Gateway completes a prompt. Implementations wrap errs.ErrGateway on
// failure and on an empty reply.
type Gateway interface {
	Complete(ctx context.Context, p Prompt, vars map[string]string) (string, error)
}

// Prompt is a system role plus a human message template. Placeholders are
// written {name} and filled from the vars passed to Render.
type Prompt struct {
	Name     string
	System   string
	Template string
}

// Render fills the template. A placeholder without a value is an error so a
// typo never reaches the model as literal braces.
func (p Prompt) Render(vars map[string]string) (string, error) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	out := strings.NewReplacer(pairs...).Replace(p.Template)

	for _, name := range p.Placeholders() {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("prompt %s: missing value for {%s}", p.Name, name)
		}
	}
	return out, nil
}

// Placeholders lists the {name} markers in the template, in order.
func (p Prompt) Placeholders() []string {
	var names []string
	rest := p.Template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

// StripCodeFence removes a surrounding ``` or ```lang fence from a reply.
func StripCodeFence(input string) string {
	clean := strings.TrimSpace(input)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```")
	if nl := strings.IndexAny(clean, "\r\n"); nl >= 0 && !strings.ContainsAny(clean[:nl], " ,") {
		clean = clean[nl:]
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}
