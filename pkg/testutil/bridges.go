package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// CallsFile is written by the scripts below into the bridge directory, one
// "<operation> <exec_name>" line per invocation.
const CallsFile = "calls"

const recordCall = `echo "$1 $BRIDGEPM_EXEC_NAME" >> ` + CallsFile + "\n"

// SingleFileBridge installs a tiny script named after the exec name into the
// target directory. The version comes from the VERSION option, default 1.0.0.
const SingleFileBridge = recordCall + `
case "$1" in
install|update)
  f="$BRIDGEPM_TARGET_DIR/$BRIDGEPM_EXEC_NAME"
  printf '#!/bin/sh\necho %s\n' "$2" > "$f"
  chmod +x "$f"
  echo "$f,${VERSION:-1.0.0}"
  ;;
remove)
  rm -f "$BRIDGEPM_PKG_PATH"
  ;;
esac
`

// DirectoryBridge installs a directory with the executable at bin/<exec_name>.
const DirectoryBridge = recordCall + `
case "$1" in
install|update)
  d="$BRIDGEPM_TARGET_DIR/$BRIDGEPM_EXEC_NAME"
  mkdir -p "$d/bin"
  printf '#!/bin/sh\necho %s\n' "$2" > "$d/bin/$BRIDGEPM_EXEC_NAME"
  chmod +x "$d/bin/$BRIDGEPM_EXEC_NAME"
  echo "$d,${VERSION:-2.0.0},bin/$BRIDGEPM_EXEC_NAME"
  ;;
remove)
  rm -rf "$BRIDGEPM_PKG_PATH"
  ;;
esac
`

// DeferringBridge implements install only and defers update and remove.
const DeferringBridge = recordCall + `
case "$1" in
install)
  f="$BRIDGEPM_TARGET_DIR/$BRIDGEPM_EXEC_NAME"
  printf '#!/bin/sh\necho %s\n' "$2" > "$f"
  chmod +x "$f"
  echo "$f,${VERSION:-1.0.0}"
  ;;
*)
  echo "not implemented here" >&2
  echo __IMPL_DEFAULT >&2
  exit 1
  ;;
esac
`

// FailingBridge fails every operation with a message on stderr.
const FailingBridge = recordCall + `
echo "cannot $1 $2" >&2
exit 3
`

// WriteBridge creates bridgesDir/name/run with body under a /bin/sh shebang.
func WriteBridge(t *testing.T, bridgesDir, name, body string) string {
	t.Helper()
	dir := filepath.Join(bridgesDir, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	run := filepath.Join(dir, "run")
	require.NoError(t, os.WriteFile(run, []byte("#!/bin/sh\n"+body), 0755))
	return run
}

// Calls returns the recorded invocations of a bridge written with one of the
// scripts above.
func Calls(t *testing.T, bridgesDir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(bridgesDir, name, CallsFile))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
