// Package inputs loads the declared package set.
//
// Declarations live in *.toml, *.yaml and *.yml files anywhere below the
// inputs directory. Each file maps bridge names to packages; a package is
// either a bare input string or a table with input and options:
//
//	# packages/cli.toml
//	[cargo]
//	bat = "bat"
//
//	[cargo.ripgrep]
//	input = "ripgrep"
//	options = { features = "pcre2", locked = true }
//
// The table key is the exec name, the name of the symlink in the load path.
package inputs
