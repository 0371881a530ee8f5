package envist

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"
)

// entry holds one declared variable: its original raw text, the text after
// ${...} substitution, the optional type annotation and the cast result.
type entry struct {
	key      string
	raw      string
	resolved string
	desc     *Descriptor
	value    any
	empty    bool
}

// Options configures an Env instance.
type Options struct {
	// AcceptEmpty allows keys declared without a value. Such entries store
	// a nil typed value and are never cast.
	AcceptEmpty bool

	// AutoCast enables annotation-driven casting at load time. When false,
	// every loaded value stays a string; callers can still request explicit
	// casts with GetAs.
	AutoCast bool

	// Logger receives structured records for parse counts, cast failures
	// and substitution results. Defaults to a no-op sink.
	Logger logr.Logger
}

// DefaultOptions returns the standard options: reject empty values, cast
// annotated values automatically, discard logs.
func DefaultOptions() Options {
	return Options{
		AutoCast: true,
		Logger:   logr.Discard(),
	}
}

// Env is a typed key/value store backed by a single env file. Entries keep
// their declaration (insertion) order.
//
// Env is not safe for concurrent use; the design assumes a single writer
// with external synchronization if shared.
type Env struct {
	path    string
	opts    Options
	log     logr.Logger
	order   []string
	entries map[string]*entry
}

// New loads the env file at path with DefaultOptions.
func New(path string) (*Env, error) {
	return NewWithOptions(path, DefaultOptions())
}

// NewWithOptions loads the env file at path with the given options.
func NewWithOptions(path string, opts Options) (*Env, error) {
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	e := &Env{
		path:    path,
		opts:    opts,
		log:     opts.Logger,
		entries: make(map[string]*entry),
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

// load runs the full pipeline: read file, parse lines, resolve references,
// cast annotated values. It builds a fresh entry set and swaps it in only
// when every line succeeds, so the store is never populated from a
// half-parsed file.
func (e *Env) load() error {
	lines, err := readLines(e.path)
	if err != nil {
		return err
	}

	// First pass: parse every line into a raw declaration. Duplicate keys:
	// last declaration wins, first insertion position is kept.
	var order []string
	batch := make(map[string]*declaration)
	for i, line := range lines {
		decl, err := parseLine(line, e.opts.AcceptEmpty)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if decl == nil {
			continue
		}
		if _, dup := batch[decl.key]; !dup {
			order = append(order, decl.key)
		}
		batch[decl.key] = decl
	}

	// Second pass: resolve ${...} references and cast, in declaration order.
	re := &resolveEnv{
		raw:      make(map[string]string, len(batch)),
		resolved: make(map[string]string),
	}
	for key, decl := range batch {
		if decl.empty {
			re.resolved[key] = ""
		} else {
			re.raw[key] = decl.value
		}
	}

	entries := make(map[string]*entry, len(batch))
	for _, key := range order {
		decl := batch[key]
		ent := &entry{key: key, raw: decl.value, desc: decl.annotation, empty: decl.empty}

		if !decl.empty {
			resolved, err := re.resolve(key, make(map[string]struct{}))
			if err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			if resolved != decl.value {
				e.log.V(1).Info("expanded value", "key", key)
			}
			ent.resolved = resolved
			ent.value = resolved

			if e.opts.AutoCast && decl.annotation != nil {
				typed, err := castValue(resolved, decl.annotation)
				if err != nil {
					e.log.Error(err, "cast failed", "key", key, "type", decl.annotation.String())
					return fmt.Errorf("key %q: %w", key, err)
				}
				ent.value = typed
			}
		}
		entries[key] = ent
	}

	e.order = order
	e.entries = entries
	e.log.Info("parsed env file", "path", e.path, "count", len(order))
	return nil
}

// Reload discards all in-memory entries and re-runs the load pipeline
// against the current file content. On failure the previous state is kept
// and the error returned.
func (e *Env) Reload() error {
	return e.load()
}

// Get returns the typed value stored under key, or ErrKeyNotFound.
func (e *Env) Get(key string) (any, error) {
	ent, ok := e.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return ent.value, nil
}

// GetOr returns the typed value stored under key, or def if key is absent.
func (e *Env) GetOr(key string, def any) any {
	ent, ok := e.entries[key]
	if !ok {
		return def
	}
	return ent.value
}

// GetAs casts the entry's resolved string with an explicit type expression
// (same grammar as file annotations, e.g. "list<int>"), overriding any
// stored annotation for this call only. The entry itself is not mutated.
func (e *Env) GetAs(key, typeExpr string) (any, error) {
	ent, ok := e.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	d, err := ParseDescriptor(typeExpr)
	if err != nil {
		return nil, err
	}
	v, err := castValue(ent.resolved, d)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", key, err)
	}
	return v, nil
}

// GetAll returns a snapshot of all current key/typed-value pairs. Iterate
// Keys() for declaration order.
func (e *Env) GetAll() map[string]any {
	out := make(map[string]any, len(e.entries))
	for key, ent := range e.entries {
		out[key] = ent.value
	}
	return out
}

// GetJSON runs a gjson path query against a json-typed entry's document,
// e.g. GetJSON("SERVICE", "endpoints.0.port").
func (e *Env) GetJSON(key, path string) (any, error) {
	ent, ok := e.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if !gjson.Valid(ent.resolved) {
		return nil, fmt.Errorf("%w: value of %q is not a JSON document", ErrCast, key)
	}
	res := gjson.Get(ent.resolved, path)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: JSON path %q under key %q", ErrKeyNotFound, path, key)
	}
	return res.Value(), nil
}

// Set inserts or replaces an entry. String values have ${...} references
// resolved against the current store; non-string values are stored natively
// with their stringified form used for later substitutions. Any previous
// annotation on the key is cleared.
func (e *Env) Set(key string, value any) error {
	return e.put(key, value, nil)
}

// SetWithCast is Set with an explicit type expression: the value is cast
// immediately and the call fails fast with ErrCast on bad input. The
// descriptor is stored as the entry's annotation and serialized by Save.
func (e *Env) SetWithCast(key string, value any, typeExpr string) error {
	d, err := ParseDescriptor(typeExpr)
	if err != nil {
		return err
	}
	return e.put(key, value, d)
}

func (e *Env) put(key string, value any, d *Descriptor) error {
	if !validKey(key) {
		return fmt.Errorf("%w: invalid key %q", ErrParse, key)
	}

	ent, err := e.stage(key, value, d)
	if err != nil {
		return err
	}
	e.apply(ent)
	return nil
}

// stage builds a fully resolved and cast entry without touching the store.
func (e *Env) stage(key string, value any, d *Descriptor) (*entry, error) {
	var raw, resolved string
	if s, ok := value.(string); ok {
		raw = s
		resolved = s
		if hasReference(s) {
			re := &resolveEnv{resolved: e.stringTable()}
			expanded, err := re.expand(s, map[string]struct{}{key: {}})
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			resolved = expanded
		}
		value = resolved
	} else {
		raw = stringify(value)
		resolved = raw
	}

	ent := &entry{key: key, raw: raw, resolved: resolved, desc: d, value: value}
	if d != nil {
		typed, err := castValue(resolved, d)
		if err != nil {
			e.log.Error(err, "cast failed", "key", key, "type", d.String())
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		ent.value = typed
	}
	return ent, nil
}

func (e *Env) apply(ent *entry) {
	if _, exists := e.entries[ent.key]; !exists {
		e.order = append(e.order, ent.key)
	}
	e.entries[ent.key] = ent
}

// stringTable returns the current string representation of every entry,
// used as the substitution source for Set-time resolution.
func (e *Env) stringTable() map[string]string {
	table := make(map[string]string, len(e.entries))
	for key, ent := range e.entries {
		table[key] = ent.resolved
	}
	return table
}

// SetAll applies Set for every pair, atomically: all values are validated,
// resolved and cast first, and the store is only mutated after every pair
// succeeds. Pairs are applied in sorted key order so insertion order is
// deterministic.
func (e *Env) SetAll(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	staged := make([]*entry, 0, len(keys))
	for _, key := range keys {
		if !validKey(key) {
			return fmt.Errorf("%w: invalid key %q", ErrParse, key)
		}
		ent, err := e.stage(key, values[key], nil)
		if err != nil {
			return err
		}
		staged = append(staged, ent)
	}
	for _, ent := range staged {
		e.apply(ent)
	}
	return nil
}

// Unset removes the entry under key, or returns ErrKeyNotFound.
func (e *Env) Unset(key string) error {
	if _, ok := e.entries[key]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	delete(e.entries, key)
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return nil
}

// UnsetAll removes the listed keys. Every key must exist; the call verifies
// all of them before removing any, so it is all-or-nothing. With no
// arguments it clears the entire store.
func (e *Env) UnsetAll(keys ...string) error {
	if len(keys) == 0 {
		e.order = nil
		e.entries = make(map[string]*entry)
		return nil
	}
	for _, key := range keys {
		if _, ok := e.entries[key]; !ok {
			return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
		}
	}
	for _, key := range keys {
		delete(e.entries, key)
	}
	remaining := e.order[:0]
	for _, k := range e.order {
		if _, ok := e.entries[k]; ok {
			remaining = append(remaining, k)
		}
	}
	e.order = remaining
	return nil
}

// Has reports whether key is present.
func (e *Env) Has(key string) bool {
	_, ok := e.entries[key]
	return ok
}

// Len returns the number of entries.
func (e *Env) Len() int {
	return len(e.order)
}

// Keys returns all keys in declaration order.
func (e *Env) Keys() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Path returns the backing file path.
func (e *Env) Path() string {
	return e.path
}

// String retrieves a string value, converting scalar and container values
// through their textual form.
func (e *Env) String(key string) (string, error) {
	ent, ok := e.entries[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	if s, ok := ent.value.(string); ok {
		return s, nil
	}
	return stringify(ent.value), nil
}

// Int64 retrieves an integer value, converting from float, bool and
// parsable strings.
func (e *Env) Int64(key string) (int64, error) {
	ent, ok := e.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	switch v := ent.value.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: cannot convert %q to int", ErrCast, v)
	}
	return 0, fmt.Errorf("%w: cannot convert %T to int", ErrCast, ent.value)
}

// Float64 retrieves a float value, converting from int, bool and parsable
// strings.
func (e *Env) Float64(key string) (float64, error) {
	ent, ok := e.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	switch v := ent.value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
		return 0, fmt.Errorf("%w: cannot convert %q to float", ErrCast, v)
	}
	return 0, fmt.Errorf("%w: cannot convert %T to float", ErrCast, ent.value)
}

// Bool retrieves a boolean value. Strings are matched against the same
// literal sets the caster uses.
func (e *Env) Bool(key string) (bool, error) {
	ent, ok := e.entries[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	switch v := ent.value.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if boolTrue[s] {
			return true, nil
		}
		if boolFalse[s] {
			return false, nil
		}
		return false, fmt.Errorf("%w: cannot convert %q to bool", ErrCast, v)
	}
	return false, fmt.Errorf("%w: cannot convert %T to bool", ErrCast, ent.value)
}

// Strings retrieves a sequence value as []string. Plain string entries are
// split on top-level commas.
func (e *Env) Strings(key string) ([]string, error) {
	ent, ok := e.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	switch v := ent.value.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = stringify(item)
		}
		return out, nil
	case string:
		return splitElements(v), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T to []string", ErrCast, ent.value)
}
