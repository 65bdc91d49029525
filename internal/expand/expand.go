package expand

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolved is returned by ExpandStrict when a placeholder names a
// variable missing from the snapshot.
var ErrUnresolved = errors.New("unresolved variable")

// Expand replaces ${NAME} and $NAME placeholders with values from env.
// Placeholders naming unknown variables are left verbatim, as is any "$" not
// followed by a valid name.
func Expand(template string, env Snapshot) string {
	out, _ := expand(template, env)
	return out
}

// ExpandStrict behaves like Expand but fails when any placeholder is
// unresolved. The error lists every missing name once, in order of appearance.
func ExpandStrict(template string, env Snapshot) (string, error) {
	out, missing := expand(template, env)
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(missing, ", "))
	}
	return out, nil
}

// ExpandAll expands each entry of values.
func ExpandAll(values []string, env Snapshot) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = Expand(value, env)
	}
	return out
}

// Expander applies the configured placeholder policy.
type Expander struct {
	Strict bool
}

// String expands one template.
func (e Expander) String(template string, env Snapshot) (string, error) {
	if e.Strict {
		return ExpandStrict(template, env)
	}
	return Expand(template, env), nil
}

// Strings expands every entry, stopping at the first strict failure.
func (e Expander) Strings(values []string, env Snapshot) ([]string, error) {
	if !e.Strict {
		return ExpandAll(values, env), nil
	}
	if values == nil {
		return nil, nil
	}
	out := make([]string, len(values))
	for i, value := range values {
		expanded, err := ExpandStrict(value, env)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

func expand(template string, env Snapshot) (string, []string) {
	if !strings.Contains(template, "$") {
		return template, nil
	}

	var (
		b       strings.Builder
		missing []string
		seen    map[string]struct{}
	)
	noteMissing := func(name string) {
		if seen == nil {
			seen = make(map[string]struct{})
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}

	b.Grow(len(template))
	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			i++
			continue
		}

		next := template[i+1]
		switch {
		case next == '{':
			end := strings.IndexByte(template[i+2:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				i = len(template)
				continue
			}
			name := template[i+2 : i+2+end]
			raw := template[i : i+3+end]
			i += 3 + end
			if !validName(name) {
				b.WriteString(raw)
				continue
			}
			if value, ok := env.Lookup(name); ok {
				b.WriteString(value)
			} else {
				noteMissing(name)
				b.WriteString(raw)
			}
		case isNameStart(next):
			j := i + 2
			for j < len(template) && isNameChar(template[j]) {
				j++
			}
			name := template[i+1 : j]
			if value, ok := env.Lookup(name); ok {
				b.WriteString(value)
			} else {
				noteMissing(name)
				b.WriteString(template[i:j])
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), missing
}

func validName(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
