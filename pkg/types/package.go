package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PkgType describes the shape of an installed artifact.
type PkgType string

const (
	// SingleExecutable packages link straight to the reported path.
	SingleExecutable PkgType = "SingleExecutable"
	// Directory packages link to path joined with the entry point.
	Directory PkgType = "Directory"
)

// Valid reports whether t is a known package type.
func (t PkgType) Valid() bool {
	return t == SingleExecutable || t == Directory
}

// DeclaredPackage is one package the user wants installed.
type DeclaredPackage struct {
	ExecName string
	Bridge   string
	Input    string
	Options  Options
	// Source is the input file the declaration came from.
	Source string
}

// Validate checks the fields that every layer relies on.
func (d DeclaredPackage) Validate() error {
	if err := ValidateExecName(d.ExecName); err != nil {
		return err
	}
	if err := ValidateBridgeName(d.Bridge); err != nil {
		return err
	}
	if strings.TrimSpace(d.Input) == "" {
		return fmt.Errorf("package %q has an empty input", d.ExecName)
	}
	if err := d.Options.Validate(); err != nil {
		return fmt.Errorf("package %q: %w", d.ExecName, err)
	}
	return nil
}

// InstalledPackage is a durable record of a successful install.
type InstalledPackage struct {
	ExecName   string
	Bridge     string
	Input      string
	Options    Options
	Type       PkgType
	Version    string
	Path       string
	EntryPoint string
	// PendingRemoval is set while a remove pipeline is in flight.
	PendingRemoval bool
	InstalledAt    time.Time
	UpdatedAt      time.Time
}

// LinkTarget returns the file the exec_name symlink points at.
func (p InstalledPackage) LinkTarget() string {
	if p.Type == Directory {
		return filepath.Join(p.Path, p.EntryPoint)
	}
	return p.Path
}

// Validate enforces the record invariants.
func (p InstalledPackage) Validate() error {
	if err := ValidateExecName(p.ExecName); err != nil {
		return err
	}
	if err := ValidateBridgeName(p.Bridge); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return fmt.Errorf("package %q has unknown type %q", p.ExecName, p.Type)
	}
	if p.Path == "" {
		return fmt.Errorf("package %q has an empty path", p.ExecName)
	}
	if p.Version == "" {
		return fmt.Errorf("package %q has an empty version", p.ExecName)
	}
	if p.Type == Directory && p.EntryPoint == "" {
		return fmt.Errorf("directory package %q has no entry point", p.ExecName)
	}
	return p.Options.Validate()
}

// ValidateExecName checks that name can be used as a file name in the load path.
func ValidateExecName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("exec name is empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("exec name %q contains a path separator", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("exec name %q starts with a dot", name)
	case strings.TrimSpace(name) != name:
		return fmt.Errorf("exec name %q has surrounding whitespace", name)
	}
	return nil
}

// ValidateBridgeName checks that name is a single directory component.
func ValidateBridgeName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("bridge name is empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("bridge name %q contains a path separator", name)
	case name == "." || name == "..":
		return fmt.Errorf("bridge name %q is not allowed", name)
	}
	return nil
}
