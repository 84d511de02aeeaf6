package types

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ValueKind is the closed set of option value types.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindNumber
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "string"
	}
}

// OptionValue holds a single option value of one of the supported kinds.
type OptionValue struct {
	kind ValueKind
	str  string
	b    bool
	num  float64
}

// StringValue returns a string option value.
func StringValue(s string) OptionValue { return OptionValue{kind: KindString, str: s} }

// BoolValue returns a boolean option value.
func BoolValue(b bool) OptionValue { return OptionValue{kind: KindBool, b: b} }

// NumberValue returns a numeric option value.
func NumberValue(n float64) OptionValue { return OptionValue{kind: KindNumber, num: n} }

// Kind reports the value type.
func (v OptionValue) Kind() ValueKind { return v.kind }

// String renders the value the way a bridge sees it in its environment.
func (v OptionValue) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return v.str
	}
}

// Equal compares kind and value.
func (v OptionValue) Equal(other OptionValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	default:
		return v.str == other.str
	}
}

type optionJSON struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Option is a named option value.
type Option struct {
	Name  string
	Value OptionValue
}

// MarshalJSON encodes the option with an explicit kind tag so numbers and
// numeric-looking strings survive a round trip through the store.
func (o Option) MarshalJSON() ([]byte, error) {
	var raw []byte
	var err error
	switch o.Value.kind {
	case KindBool:
		raw, err = json.Marshal(o.Value.b)
	case KindNumber:
		raw, err = json.Marshal(o.Value.num)
	default:
		raw, err = json.Marshal(o.Value.str)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(optionJSON{Name: o.Name, Kind: o.Value.kind.String(), Value: raw})
}

// UnmarshalJSON decodes the representation written by MarshalJSON.
func (o *Option) UnmarshalJSON(data []byte) error {
	var j optionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	o.Name = j.Name
	switch j.Kind {
	case "bool":
		var b bool
		if err := json.Unmarshal(j.Value, &b); err != nil {
			return err
		}
		o.Value = BoolValue(b)
	case "number":
		var n float64
		if err := json.Unmarshal(j.Value, &n); err != nil {
			return err
		}
		o.Value = NumberValue(n)
	case "string":
		var s string
		if err := json.Unmarshal(j.Value, &s); err != nil {
			return err
		}
		o.Value = StringValue(s)
	default:
		return fmt.Errorf("unknown option kind %q", j.Kind)
	}
	return nil
}

// ReservedEnvPrefix is the environment prefix owned by bridgepm itself.
const ReservedEnvPrefix = "BRIDGEPM_"

var optionNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateOptionName checks that name can be exported as an environment
// variable and does not collide with the reserved prefix.
func ValidateOptionName(name string) error {
	if !optionNameRe.MatchString(name) {
		return fmt.Errorf("option name %q is not a valid environment variable name", name)
	}
	if strings.HasPrefix(strings.ToUpper(name), ReservedEnvPrefix) {
		return fmt.Errorf("option name %q uses the reserved %s prefix", name, ReservedEnvPrefix)
	}
	return nil
}

// Options is an ordered collection of named option values. Names are unique.
type Options []Option

// Get returns the value for name.
func (o Options) Get(name string) (OptionValue, bool) {
	for _, opt := range o {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return OptionValue{}, false
}

// Set replaces the value for name or appends a new option.
func (o Options) Set(name string, value OptionValue) Options {
	for i := range o {
		if o[i].Name == name {
			o[i].Value = value
			return o
		}
	}
	return append(o, Option{Name: name, Value: value})
}

// Names returns option names in declaration order.
func (o Options) Names() []string {
	names := make([]string, len(o))
	for i, opt := range o {
		names[i] = opt.Name
	}
	return names
}

// Equal reports whether both collections hold the same names and values.
// Declaration order is not significant.
func (o Options) Equal(other Options) bool {
	if len(o) != len(other) {
		return false
	}
	for _, opt := range o {
		v, ok := other.Get(opt.Name)
		if !ok || !v.Equal(opt.Value) {
			return false
		}
	}
	return true
}

// Sorted returns a copy ordered by name.
func (o Options) Sorted() Options {
	out := make(Options, len(o))
	copy(out, o)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks every option name, rejects duplicates and rejects numbers
// that are NaN or infinite.
func (o Options) Validate() error {
	seen := make(map[string]bool, len(o))
	for _, opt := range o {
		if err := ValidateOptionName(opt.Name); err != nil {
			return err
		}
		if v := opt.Value; v.kind == KindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
			return fmt.Errorf("option %q must be a finite number", opt.Name)
		}
		if seen[opt.Name] {
			return fmt.Errorf("option %q declared more than once", opt.Name)
		}
		seen[opt.Name] = true
	}
	return nil
}

// Env renders the options as NAME=value pairs, prefixing names with prefix.
func (o Options) Env(prefix string) []string {
	env := make([]string, 0, len(o))
	for _, opt := range o {
		env = append(env, prefix+opt.Name+"="+opt.Value.String())
	}
	return env
}
