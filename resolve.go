package envist

import (
	"fmt"
	"strings"
)

// resolveEnv expands ${name} references for one load batch. References are
// looked up first in resolved (finalized string representations, including
// entries already present in the store) and then in raw (unresolved values
// from the same file), so forward references within a file work. A
// per-resolution visited set turns self- and transitive cycles into errors
// instead of unbounded recursion.
type resolveEnv struct {
	raw      map[string]string
	resolved map[string]string
}

// resolve returns the fully expanded string representation of key.
func (r *resolveEnv) resolve(key string, visited map[string]struct{}) (string, error) {
	if s, ok := r.resolved[key]; ok {
		return s, nil
	}
	raw, ok := r.raw[key]
	if !ok {
		return "", fmt.Errorf("%w: unresolved reference ${%s}", ErrKeyNotFound, key)
	}
	if _, seen := visited[key]; seen {
		return "", fmt.Errorf("%w: circular reference detected for variable %q", ErrParse, key)
	}
	visited[key] = struct{}{}
	s, err := r.expand(raw, visited)
	delete(visited, key)
	if err != nil {
		return "", err
	}
	r.resolved[key] = s
	return s, nil
}

// expand substitutes every ${name} occurrence in value, left to right and
// non-overlapping. Repeated references to the same name are all replaced.
func (r *resolveEnv) expand(value string, visited map[string]struct{}) (string, error) {
	if !strings.Contains(value, "${") {
		return value, nil
	}

	var b strings.Builder
	for {
		start := strings.Index(value, "${")
		if start < 0 {
			b.WriteString(value)
			return b.String(), nil
		}
		end := strings.Index(value[start:], "}")
		if end < 0 {
			// Unterminated reference, keep the text as-is.
			b.WriteString(value)
			return b.String(), nil
		}
		end += start

		name := value[start+2 : end]
		repl, err := r.resolve(name, visited)
		if err != nil {
			return "", err
		}

		b.WriteString(value[:start])
		b.WriteString(repl)
		value = value[end+1:]
	}
}

// hasReference reports whether value contains a ${name} placeholder.
func hasReference(value string) bool {
	start := strings.Index(value, "${")
	return start >= 0 && strings.Contains(value[start:], "}")
}
