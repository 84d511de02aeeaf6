package inputs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
)

// entry is one declaration before validation.
type entry struct {
	bridge   string
	execName string
	input    string
	options  types.Options
}

// Load reads every input file below dir. Dot files and dot directories are
// skipped. An exec name may be declared only once across all files.
func Load(dir string) ([]types.DeclaredPackage, error) {
	logger := logging.GetLogger("inputs")

	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "inputs directory %s is not readable", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrConfigLoad, "inputs path %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to scan %s", dir)
	}

	var out []types.DeclaredPackage
	seen := map[string]string{}
	for _, file := range files {
		pkgs, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		for _, p := range pkgs {
			if prev, ok := seen[p.ExecName]; ok {
				return nil, errors.Newf(errors.ErrInputDuplicate,
					"package %s is declared in both %s and %s", p.ExecName, prev, p.Source).
					WithDetail("exec_name", p.ExecName)
			}
			seen[p.ExecName] = p.Source
			out = append(out, p)
		}
	}

	logger.Debug().Str("dir", dir).Int("files", len(files)).Int("packages", len(out)).Msg("Inputs loaded")
	return out, nil
}

// Supported reports whether path has an input file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile parses a single input file.
func LoadFile(path string) ([]types.DeclaredPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read %s", path)
	}
	return Parse(path, data)
}

// Parse decodes data using the format implied by name's extension.
func Parse(name string, data []byte) ([]types.DeclaredPackage, error) {
	var (
		entries []entry
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		entries, err = parseTOML(data)
	case ".yaml", ".yml":
		entries, err = parseYAML(data)
	default:
		return nil, errors.Newf(errors.ErrInputParse, "%s: unsupported input format", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInputParse, "%s", name)
	}

	out := make([]types.DeclaredPackage, 0, len(entries))
	seen := map[string]bool{}
	for _, e := range entries {
		p := types.DeclaredPackage{
			ExecName: e.execName,
			Bridge:   e.bridge,
			Input:    e.input,
			Options:  e.options,
			Source:   name,
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, errors.ErrInputInvalid, "%s", name)
		}
		if seen[p.ExecName] {
			return nil, errors.Newf(errors.ErrInputDuplicate, "%s: package %s is declared more than once", name, p.ExecName).
				WithDetail("exec_name", p.ExecName)
		}
		seen[p.ExecName] = true
		out = append(out, p)
	}
	return out, nil
}
