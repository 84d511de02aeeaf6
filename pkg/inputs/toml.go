package inputs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// parseTOML reads
//
//	[cargo]
//	bat = "bat"
//
//	[github.nvim]
//	input = "neovim/neovim"
//	options = { channel = "nightly" }
//
// Bridges, packages and options come out in the order they appear in the
// file.
func parseTOML(data []byte) ([]entry, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	order, err := declarationOrder(data)
	if err != nil {
		return nil, err
	}

	var out []entry
	for _, bridge := range order.keys(doc) {
		pkgs, ok := doc[bridge].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("bridge %s must be a table of packages", bridge)
		}
		for _, name := range order.keys(pkgs, bridge) {
			e := entry{bridge: bridge, execName: name}
			switch v := pkgs[name].(type) {
			case string:
				e.input = v
			case map[string]interface{}:
				if err := fillTOMLEntry(&e, v, order); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("package %s.%s must be a string or a table", bridge, name)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func fillTOMLEntry(e *entry, table map[string]interface{}, order keyOrder) error {
	for key, raw := range table {
		switch key {
		case "input":
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("package %s: input must be a string", e.execName)
			}
			e.input = s
		case "options":
			opts, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("package %s: options must be a table", e.execName)
			}
			for _, name := range order.keys(opts, e.bridge, e.execName, "options") {
				v, err := tomlValue(opts[name])
				if err != nil {
					return fmt.Errorf("package %s option %s: %w", e.execName, name, err)
				}
				e.options = e.options.Set(name, v)
			}
		default:
			return fmt.Errorf("package %s: unknown key %q", e.execName, key)
		}
	}
	return nil
}

func tomlValue(raw interface{}) (types.OptionValue, error) {
	switch v := raw.(type) {
	case string:
		return types.StringValue(v), nil
	case bool:
		return types.BoolValue(v), nil
	case int64:
		return types.NumberValue(float64(v)), nil
	case float64:
		return types.NumberValue(v), nil
	default:
		return types.OptionValue{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// keyOrder maps a dotted key path to the position where it first appears in
// the document.
type keyOrder map[string]int

const keySep = "\x00"

func (o keyOrder) record(path []string) {
	for i := 1; i <= len(path); i++ {
		k := strings.Join(path[:i], keySep)
		if _, ok := o[k]; !ok {
			o[k] = len(o)
		}
	}
}

// keys returns the keys of m, a table found at prefix, in document order.
func (o keyOrder) keys(m map[string]interface{}, prefix ...string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	base := strings.Join(prefix, keySep)
	pos := func(k string) int {
		if base != "" {
			k = base + keySep + k
		}
		if i, ok := o[k]; ok {
			return i
		}
		return len(o)
	}
	sort.SliceStable(keys, func(i, j int) bool { return pos(keys[i]) < pos(keys[j]) })
	return keys
}

// declarationOrder walks the top-level expressions of data and records every
// table header and key it meets, including keys nested in inline tables.
func declarationOrder(data []byte) (keyOrder, error) {
	order := keyOrder{}
	var table []string

	p := &unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(expr.Key())
			order.record(table)
		case unstable.KeyValue:
			recordKeyValue(order, table, expr)
		}
	}
	return order, p.Error()
}

func recordKeyValue(order keyOrder, parent []string, kv *unstable.Node) {
	path := append(append([]string{}, parent...), keyParts(kv.Key())...)
	order.record(path)

	value := kv.Value()
	if value.Kind != unstable.InlineTable {
		return
	}
	it := value.Children()
	for it.Next() {
		if child := it.Node(); child.Kind == unstable.KeyValue {
			recordKeyValue(order, path, child)
		}
	}
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}
