package bridge

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/types"
)

// DefaultSentinel is the stderr line a bridge prints, together with a
// non-zero exit, to ask for the default update or remove behaviour.
const DefaultSentinel = "__IMPL_DEFAULT"

// Environment names exported to every bridge invocation.
const (
	EnvOperation    = "BRIDGEPM_OPERATION"
	EnvExecName     = "BRIDGEPM_EXEC_NAME"
	EnvBridge       = "BRIDGEPM_BRIDGE"
	EnvTargetDir    = "BRIDGEPM_TARGET_DIR"
	EnvPkgPath      = "BRIDGEPM_PKG_PATH"
	EnvPkgVersion   = "BRIDGEPM_PKG_VERSION"
	EnvPkgType      = "BRIDGEPM_PKG_TYPE"
	EnvPkgEntry     = "BRIDGEPM_PKG_ENTRY_POINT"
	EnvPriorOptions = "BRIDGEPM_PKG_OPTIONS"
	// EnvPriorPrefix prefixes each previously recorded option.
	EnvPriorPrefix = "BRIDGEPM_PRIOR_"
)

// wantsDefault reports whether any stderr line is exactly the sentinel. Only
// a trailing carriage return is tolerated.
func wantsDefault(stderr string) bool {
	sc := bufio.NewScanner(strings.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.TrimSuffix(sc.Text(), "\r") == DefaultSentinel {
			return true
		}
	}
	return false
}

// ParseOutput validates the stdout of a successful install or update. The
// trimmed output must be a single line "path,version[,entry_point]". A
// directory path requires an entry point relative to it.
func ParseOutput(fsys types.FS, stdout string) (*types.Artifact, error) {
	line := strings.TrimSpace(stdout)
	if line == "" {
		return nil, malformed("bridge printed nothing on stdout", stdout)
	}
	if strings.ContainsAny(line, "\r\n") {
		return nil, malformed("stdout must be a single line", stdout)
	}

	fields := strings.Split(line, ",")
	if len(fields) != 2 && len(fields) != 3 {
		return nil, malformed("expected path,version[,entry_point]", stdout)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
		if fields[i] == "" {
			return nil, malformed("empty field", stdout)
		}
	}

	a := &types.Artifact{Path: filepath.Clean(fields[0]), Version: fields[1]}
	if !filepath.IsAbs(a.Path) {
		return nil, malformed("path must be absolute", stdout)
	}

	info, err := fsys.Stat(a.Path)
	if err != nil {
		return nil, malformed("reported path does not exist", stdout)
	}

	if !info.IsDir() {
		if len(fields) == 3 {
			return nil, malformed("entry point given for a file path", stdout)
		}
		a.Type = types.SingleExecutable
		return a, nil
	}

	if len(fields) != 3 {
		return nil, malformed("directory path requires an entry point", stdout)
	}
	entry := fields[2]
	if filepath.IsAbs(entry) {
		rel, err := filepath.Rel(a.Path, entry)
		if err != nil {
			return nil, malformed("entry point is outside the package path", stdout)
		}
		entry = rel
	}
	entry = filepath.Clean(entry)
	if entry == "." || entry == ".." || strings.HasPrefix(entry, ".."+string(filepath.Separator)) {
		return nil, malformed("entry point is outside the package path", stdout)
	}
	entryInfo, err := fsys.Stat(filepath.Join(a.Path, entry))
	if err != nil {
		return nil, malformed("entry point does not exist", stdout)
	}
	if entryInfo.IsDir() {
		return nil, malformed("entry point is a directory", stdout)
	}

	a.EntryPoint = entry
	a.Type = types.Directory
	return a, nil
}

func malformed(msg, stdout string) error {
	return errors.New(errors.ErrBridgeMalformedOutput, msg).WithDetail("stdout", stdout)
}
