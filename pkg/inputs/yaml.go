package inputs

import (
	"fmt"

	"github.com/arthur-debert/bridgepm/pkg/types"
	"gopkg.in/yaml.v3"
)

// parseYAML reads
//
//	cargo:
//	  bat: bat
//	github:
//	  nvim:
//	    input: neovim/neovim
//	    options:
//	      channel: nightly
//
// Declaration order is kept for bridges, packages and options.
func parseYAML(data []byte) ([]entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if isNull(root) {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must map bridge names to packages", root.Line)
	}

	var out []entry
	for i := 0; i+1 < len(root.Content); i += 2 {
		bridge := root.Content[i].Value
		pkgs := root.Content[i+1]
		if isNull(pkgs) {
			continue
		}
		if pkgs.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: bridge %s must map package names to inputs", pkgs.Line, bridge)
		}

		for j := 0; j+1 < len(pkgs.Content); j += 2 {
			e := entry{bridge: bridge, execName: pkgs.Content[j].Value}
			value := pkgs.Content[j+1]
			switch value.Kind {
			case yaml.ScalarNode:
				e.input = value.Value
			case yaml.MappingNode:
				if err := fillYAMLEntry(&e, value); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("line %d: package %s must be a string or a mapping", value.Line, e.execName)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func fillYAMLEntry(e *entry, node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "input":
			if value.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: package %s: input must be a string", value.Line, e.execName)
			}
			e.input = value.Value
		case "options":
			if isNull(value) {
				continue
			}
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: package %s: options must be a mapping", value.Line, e.execName)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				name := value.Content[j].Value
				if _, dup := e.options.Get(name); dup {
					return fmt.Errorf("line %d: package %s: option %s repeated", value.Content[j].Line, e.execName, name)
				}
				v, err := yamlValue(value.Content[j+1])
				if err != nil {
					return fmt.Errorf("package %s option %s: %w", e.execName, name, err)
				}
				e.options = e.options.Set(name, v)
			}
		default:
			return fmt.Errorf("line %d: package %s: unknown key %q", node.Content[i].Line, e.execName, key)
		}
	}
	return nil
}

func yamlValue(node *yaml.Node) (types.OptionValue, error) {
	if node.Kind != yaml.ScalarNode {
		return types.OptionValue{}, fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return types.OptionValue{}, err
		}
		return types.BoolValue(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return types.OptionValue{}, err
		}
		return types.NumberValue(f), nil
	case "!!str":
		return types.StringValue(node.Value), nil
	default:
		return types.OptionValue{}, fmt.Errorf("line %d: unsupported value %q", node.Line, node.Value)
	}
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.Tag == "!!null"
}
