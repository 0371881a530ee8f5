package envist

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects an Export encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Export writes the typed snapshot to w in the requested format. Sets are
// rendered as sorted arrays and dict keys as strings, so every entry is
// representable in all three encodings.
func (e *Env) Export(w io.Writer, format Format) error {
	data := make(map[string]any, len(e.entries))
	for _, key := range e.order {
		data[key] = exportable(e.entries[key].value)
	}

	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(data)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(data)
	}
	return fmt.Errorf("%w: unsupported export format %q", ErrType, format)
}

// exportable converts internal container representations into shapes the
// TOML/JSON/YAML encoders all accept.
func exportable(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = exportable(item)
		}
		return out
	case map[any]struct{}:
		out := make([]any, 0, len(t))
		for item := range t {
			out = append(out, item)
		}
		sort.Slice(out, func(i, j int) bool {
			return stringify(out[i]) < stringify(out[j])
		})
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[stringify(k)] = exportable(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = exportable(val)
		}
		return out
	default:
		return v
	}
}
