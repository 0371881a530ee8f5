package envist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SaveOptions configures Save.
type SaveOptions struct {
	// Pretty aligns keys into a column and pads around '=' for readability.
	Pretty bool

	// SortKeys writes entries in lexical key order instead of declaration
	// order.
	SortKeys bool

	// ExampleFile additionally writes "<path>.example" containing only keys
	// and annotations, values left blank.
	ExampleFile bool
}

// readLines returns the file's content as physical lines.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read env file %q: %w", path, err)
	}
	return strings.Split(string(data), "\n"), nil
}

// Save serializes every entry back to declaration syntax
// (KEY <annotation> = value) and atomically replaces the source file.
// Raw (unexpanded) values are written, so ${...} references survive a
// save/reload round trip.
func (e *Env) Save(opts SaveOptions) error {
	keys := e.Keys()
	if opts.SortKeys {
		sort.Strings(keys)
	}

	keyWidth := 0
	if opts.Pretty {
		for _, key := range keys {
			if w := len(e.declarationKey(key)); w > keyWidth {
				keyWidth = w
			}
		}
	}

	var b strings.Builder
	b.Grow(len(keys) * 32)
	for _, key := range keys {
		b.WriteString(e.formatEntry(key, keyWidth, opts.Pretty, false))
		b.WriteByte('\n')
	}

	if err := atomicWriteFile(e.path, []byte(b.String())); err != nil {
		return err
	}
	e.log.V(1).Info("saved env file", "path", e.path, "count", len(keys))

	if opts.ExampleFile {
		var ex strings.Builder
		for _, key := range keys {
			ex.WriteString(e.formatEntry(key, keyWidth, opts.Pretty, true))
			ex.WriteByte('\n')
		}
		examplePath := e.path + ".example"
		if err := atomicWriteFile(examplePath, []byte(ex.String())); err != nil {
			return err
		}
		e.log.V(1).Info("saved example file", "path", examplePath)
	}
	return nil
}

// declarationKey renders the key with its annotation, e.g. "PORT <int>".
func (e *Env) declarationKey(key string) string {
	ent := e.entries[key]
	if ent.desc == nil {
		return key
	}
	return key + " <" + ent.desc.String() + ">"
}

// formatEntry renders one declaration line. Example lines omit the value.
func (e *Env) formatEntry(key string, keyWidth int, pretty, example bool) string {
	ent := e.entries[key]
	decl := e.declarationKey(key)

	value := escapeValue(ent.raw)
	if example {
		value = ""
	}

	if pretty {
		return strings.TrimRight(fmt.Sprintf("%-*s = %s", keyWidth, decl, value), " ")
	}
	if ent.desc != nil {
		return strings.TrimRight(decl+" = "+value, " ")
	}
	return key + "=" + value
}

// escapeValue protects characters the line parser treats specially, so a
// saved file parses back to the same raw value. '#' would otherwise start a
// comment and truncate the value on the next load.
func escapeValue(s string) string {
	return strings.ReplaceAll(s, "#", `\#`)
}

// atomicWriteFile replaces the env file at path through a temp file in the
// same directory, syncing and renaming so readers never observe partial
// content.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create env file directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage env file write: %w", err)
	}

	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write env file data: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync env file data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finalize env file write: %w", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set env file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace env file %q: %w", path, err)
	}

	return nil
}
