// Package bridge runs bridge executables.
//
// A bridge is a directory under the bridges directory containing an
// executable named run. bridgepm invokes it as
//
//	run <install|update|remove> <input>
//
// with the package options exported as environment variables under their own
// names. For update and remove the previously installed record is exported as
// BRIDGEPM_PKG_PATH, BRIDGEPM_PKG_VERSION, BRIDGEPM_PKG_TYPE,
// BRIDGEPM_PKG_ENTRY_POINT, BRIDGEPM_PKG_OPTIONS and one BRIDGEPM_PRIOR_<NAME>
// per previously recorded option. BRIDGEPM_TARGET_DIR names a directory the
// bridge may install into.
//
// On success install and update print a single line
//
//	path,version[,entry_point]
//
// where entry_point is required when path is a directory. A bridge that
// exits non-zero and prints __IMPL_DEFAULT on a stderr line asks for the
// default behaviour: update re-runs install, remove deletes the artifact and
// its link. Install may not defer.
//
// Each invocation runs in its own process group with a wall clock timeout.
// Stderr is appended to a per bridge log file.
package bridge
