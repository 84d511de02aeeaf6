// Package testutil holds test helpers shared across bridgepm packages:
// temporary directory layouts, ready made bridge scripts and symlink
// assertions. Bridge scripts run under /bin/sh.
package testutil
