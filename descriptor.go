package envist

import (
	"fmt"
	"strings"
)

// Kind identifies the base type of a Descriptor.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindTuple
	KindSet
	KindDict
	KindJSON
	KindCSV
)

// kindNames maps recognized annotation names to kinds. Names are matched
// case-insensitively; "array" and "comma_separated" are accepted synonyms.
var kindNames = map[string]Kind{
	"str":             KindString,
	"int":             KindInt,
	"float":           KindFloat,
	"bool":            KindBool,
	"list":            KindList,
	"array":           KindList,
	"tuple":           KindTuple,
	"set":             KindSet,
	"dict":            KindDict,
	"json":            KindJSON,
	"csv":             KindCSV,
	"comma_separated": KindCSV,
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindSet:
		return "set"
	case KindDict:
		return "dict"
	case KindJSON:
		return "json"
	case KindCSV:
		return "csv"
	}
	return "invalid"
}

// Descriptor is the parsed form of a type annotation. It is a tree: List,
// Tuple and Set carry an element descriptor, Dict carries a key and a value
// descriptor. A nil element/key/value descriptor means "string by default".
// Descriptors are immutable once parsed.
type Descriptor struct {
	Kind  Kind
	Elem  *Descriptor // element type for List, Tuple, Set
	Key   *Descriptor // key type for Dict
	Value *Descriptor // value type for Dict
}

// String renders the canonical annotation text, e.g. "list<int>" or
// "dict<str, int>".
func (d *Descriptor) String() string {
	if d == nil {
		return ""
	}
	switch d.Kind {
	case KindList, KindTuple, KindSet:
		if d.Elem != nil {
			return fmt.Sprintf("%s<%s>", d.Kind, d.Elem)
		}
	case KindDict:
		if d.Key != nil || d.Value != nil {
			return fmt.Sprintf("%s<%s, %s>", d.Kind, orString(d.Key), orString(d.Value))
		}
	}
	return d.Kind.String()
}

func orString(d *Descriptor) string {
	if d == nil {
		return "str"
	}
	return d.String()
}

// Equal reports whether two descriptors describe the same type structurally.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Kind == other.Kind &&
		d.Elem.Equal(other.Elem) &&
		d.Key.Equal(other.Key) &&
		d.Value.Equal(other.Value)
}

// scalar reports whether the descriptor casts to a comparable scalar value.
func (d *Descriptor) scalar() bool {
	if d == nil {
		return true // defaults to string
	}
	switch d.Kind {
	case KindString, KindInt, KindFloat, KindBool:
		return true
	}
	return false
}

// ParseDescriptor parses a type annotation such as "int", "list<int>" or
// "dict<str, list<float>>" into a Descriptor. It is the single grammar for
// both file annotations and string cast requests passed to GetAs/SetWithCast.
//
// Unbalanced angle brackets fail with ErrParse; unknown type names, wrong
// dict arity and parameters on non-container types fail with ErrType.
func ParseDescriptor(expr string) (*Descriptor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty type annotation", ErrParse)
	}
	if err := checkBrackets(expr); err != nil {
		return nil, err
	}
	return parseDescriptor(expr)
}

// checkBrackets verifies that every '<' has a matching '>'.
func checkBrackets(expr string) error {
	depth := 0
	for _, r := range expr {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced brackets in type annotation %q", ErrParse, expr)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced brackets in type annotation %q", ErrParse, expr)
	}
	return nil
}

func parseDescriptor(expr string) (*Descriptor, error) {
	expr = strings.TrimSpace(expr)

	open := strings.IndexByte(expr, '<')
	if open < 0 {
		kind, ok := kindNames[strings.ToLower(expr)]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported type %q", ErrType, expr)
		}
		return &Descriptor{Kind: kind}, nil
	}

	// Parameterized form: name<inner>. The closing bracket must be the last
	// character, otherwise the annotation has trailing garbage.
	if expr[len(expr)-1] != '>' {
		return nil, fmt.Errorf("%w: invalid type syntax %q", ErrParse, expr)
	}
	name := strings.TrimSpace(expr[:open])
	inner := expr[open+1 : len(expr)-1]

	kind, ok := kindNames[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrType, name)
	}

	args := splitTypeArgs(inner)

	switch kind {
	case KindList, KindTuple, KindSet:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s takes exactly one type argument, got %d in %q", ErrType, kind, len(args), expr)
		}
		elem, err := parseDescriptor(args[0])
		if err != nil {
			return nil, err
		}
		if kind == KindSet && !elem.scalar() {
			return nil, fmt.Errorf("%w: set element type must be scalar, got %q", ErrType, elem)
		}
		return &Descriptor{Kind: kind, Elem: elem}, nil

	case KindDict:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: dict takes exactly two type arguments, got %d in %q", ErrType, len(args), expr)
		}
		key, err := parseDescriptor(args[0])
		if err != nil {
			return nil, err
		}
		if !key.scalar() {
			return nil, fmt.Errorf("%w: dict key type must be scalar, got %q", ErrType, key)
		}
		value, err := parseDescriptor(args[1])
		if err != nil {
			return nil, err
		}
		return &Descriptor{Kind: kind, Key: key, Value: value}, nil
	}

	return nil, fmt.Errorf("%w: type %s does not take parameters", ErrType, kind)
}

// splitTypeArgs splits type arguments on commas that are not nested inside
// angle brackets, e.g. "str, list<int>" -> ["str", "list<int>"].
func splitTypeArgs(s string) []string {
	var (
		args    []string
		depth   int
		current strings.Builder
	)
	for _, r := range s {
		switch {
		case r == '<':
			depth++
			current.WriteRune(r)
		case r == '>':
			depth--
			current.WriteRune(r)
		case r == ',' && depth == 0:
			if arg := strings.TrimSpace(current.String()); arg != "" {
				args = append(args, arg)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if arg := strings.TrimSpace(current.String()); arg != "" {
		args = append(args, arg)
	}
	return args
}
