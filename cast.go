package envist

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Boolean literal sets, matched case-insensitively.
var (
	boolTrue  = map[string]bool{"true": true, "1": true, "yes": true, "on": true}
	boolFalse = map[string]bool{"false": true, "0": true, "no": true, "off": true}
)

// castValue converts a resolved string into a typed value per the
// descriptor. It is pure and deterministic: no I/O, no store access.
//
// Typed results use a closed set of Go types: string, int64, float64, bool,
// []any (list/tuple), []string (csv), map[any]struct{} (set, first
// occurrence wins), map[any]any (dict), and the native JSON shapes produced
// by document parsing (map[string]any, []any, float64, string, bool, nil).
func castValue(s string, d *Descriptor) (any, error) {
	if d == nil {
		return s, nil
	}

	switch d.Kind {
	case KindString:
		return strings.TrimSpace(s), nil

	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot cast %q to int", ErrCast, s)
		}
		return n, nil

	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot cast %q to float", ErrCast, s)
		}
		return f, nil

	case KindBool:
		v := strings.ToLower(strings.TrimSpace(s))
		if boolTrue[v] {
			return true, nil
		}
		if boolFalse[v] {
			return false, nil
		}
		return nil, fmt.Errorf("%w: cannot cast %q to bool", ErrCast, s)

	case KindList, KindTuple:
		return castSequence(s, d.Elem)

	case KindSet:
		return castSet(s, d.Elem)

	case KindDict:
		return castDict(s, d.Key, d.Value)

	case KindJSON:
		return castJSON(s)

	case KindCSV:
		return castCSV(s)
	}

	return nil, fmt.Errorf("%w: cannot cast to %q", ErrType, d)
}

// castSequence builds an ordered []any from a comma-separated literal.
// Tuples share the representation; they are fixed-length by construction and
// must not be mutated after casting.
func castSequence(s string, elem *Descriptor) ([]any, error) {
	items := splitElements(s)
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := castValue(item, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// castSet builds an unordered unique-element collection. The first
// occurrence of a duplicate element wins.
func castSet(s string, elem *Descriptor) (map[any]struct{}, error) {
	items := splitElements(s)
	out := make(map[any]struct{}, len(items))
	for _, item := range items {
		v, err := castValue(item, elem)
		if err != nil {
			return nil, err
		}
		if _, dup := out[v]; !dup {
			out[v] = struct{}{}
		}
	}
	return out, nil
}

// castDict parses "k=v,k2=v2" or "k: v, k2: v2" literals (the first
// top-level ':' or '=' in each pair separates key from value). Duplicate
// keys within one literal fail.
func castDict(s string, keyDesc, valDesc *Descriptor) (map[any]any, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = s[1 : len(s)-1]
	}

	out := make(map[any]any)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}

	for _, pair := range smartSplit(s, ',') {
		rawKey, rawVal, ok := splitPair(pair)
		if !ok {
			return nil, fmt.Errorf("%w: invalid dict pair %q", ErrCast, pair)
		}
		key, err := castValue(unquote(strings.TrimSpace(rawKey)), keyDesc)
		if err != nil {
			return nil, err
		}
		val, err := castValue(unquote(strings.TrimSpace(rawVal)), valDesc)
		if err != nil {
			return nil, err
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: duplicate dict key %v", ErrCast, key)
		}
		out[key] = val
	}
	return out, nil
}

// castJSON parses the value as a standard JSON document. The document's own
// type is preserved: objects become map[string]any, arrays []any, numbers
// float64.
func castJSON(s string) (any, error) {
	s = strings.TrimSpace(s)
	if !gjson.Valid(s) {
		return nil, fmt.Errorf("%w: invalid JSON document %q", ErrCast, s)
	}
	return gjson.Parse(s).Value(), nil
}

// castCSV yields the fields of one CSV record as strings, with no numeric
// inference. Quoted fields may embed commas.
func castCSV(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return []string{}, nil
	}
	record, err := csv.NewReader(strings.NewReader(s)).Read()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid CSV value %q", ErrCast, s)
	}
	for i, field := range record {
		record[i] = strings.TrimSpace(field)
	}
	return record, nil
}

// splitElements prepares the elements of a sequence literal: an optional
// surrounding [ ] is stripped, the body is split on top-level commas, and
// each element is trimmed and unquoted. Commas nested in brackets, braces or
// quotes are not split points, so JSON-like sub-literals survive intact.
func splitElements(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := smartSplit(s, ',')
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, unquote(strings.TrimSpace(part)))
	}
	return out
}

// smartSplit splits on sep at top level only: separators inside [ ], { } or
// quoted regions are ignored. Empty segments are dropped.
func smartSplit(s string, sep byte) []string {
	var (
		parts    []string
		current  strings.Builder
		brackets int
		braces   int
		inQuote  rune
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if rune(c) == inQuote {
				inQuote = 0
			}
			current.WriteByte(c)
		case c == '"' || c == '\'':
			inQuote = rune(c)
			current.WriteByte(c)
		case c == '[':
			brackets++
			current.WriteByte(c)
		case c == ']':
			brackets--
			current.WriteByte(c)
		case c == '{':
			braces++
			current.WriteByte(c)
		case c == '}':
			braces--
			current.WriteByte(c)
		case c == sep && brackets == 0 && braces == 0:
			if part := strings.TrimSpace(current.String()); part != "" {
				parts = append(parts, part)
			}
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if part := strings.TrimSpace(current.String()); part != "" {
		parts = append(parts, part)
	}
	return parts
}

// splitPair splits a dict pair on its first top-level ':' or '='.
func splitPair(pair string) (key, value string, ok bool) {
	var (
		brackets int
		braces   int
		inQuote  rune
	)
	for i := 0; i < len(pair); i++ {
		c := pair[i]
		switch {
		case inQuote != 0:
			if rune(c) == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = rune(c)
		case c == '[':
			brackets++
		case c == ']':
			brackets--
		case c == '{':
			braces++
		case c == '}':
			braces--
		case (c == ':' || c == '=') && brackets == 0 && braces == 0:
			return pair[:i], pair[i+1:], true
		}
	}
	return "", "", false
}

// stringify renders a typed value back to its textual form, used when an
// entry is referenced in ${...} expansion and when native values are stored
// via Set. Sequences render comma-joined, dicts as k=v pairs, sets sorted
// for determinism.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	case map[any]struct{}:
		parts := make([]string, 0, len(t))
		for e := range t {
			parts = append(parts, stringify(e))
		}
		sort.Strings(parts)
		return strings.Join(parts, ",")
	case map[any]any:
		parts := make([]string, 0, len(t))
		for k, val := range t {
			parts = append(parts, stringify(k)+"="+stringify(val))
		}
		sort.Strings(parts)
		return strings.Join(parts, ",")
	case map[string]any:
		parts := make([]string, 0, len(t))
		for k, val := range t {
			parts = append(parts, k+"="+stringify(val))
		}
		sort.Strings(parts)
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", v)
	}
}
