package bridge

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single invocation when none is configured.
const DefaultTimeout = 10 * time.Minute

// InvokerOptions configures an Invoker.
type InvokerOptions struct {
	FS types.FS
	// Timeout bounds each invocation.
	Timeout time.Duration
	// TargetDir is the root under which each bridge gets a suggested
	// install directory named after it.
	TargetDir string
	// LogDir receives one append-only stderr log per bridge. Empty disables it.
	LogDir string
	// Environ supplies the base environment. Defaults to os.Environ.
	Environ func() []string
}

// Invoker runs bridge executables and classifies their results.
type Invoker struct {
	fs        types.FS
	timeout   time.Duration
	targetDir string
	logDir    string
	environ   func() []string
	logger    zerolog.Logger
}

// NewInvoker returns an Invoker.
func NewInvoker(opts InvokerOptions) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	return &Invoker{
		fs:        opts.FS,
		timeout:   opts.Timeout,
		targetDir: opts.TargetDir,
		logDir:    opts.LogDir,
		environ:   opts.Environ,
		logger:    logging.GetLogger("bridge.invoker"),
	}
}

// Invoke runs `run <op> <input>` for bridge b. It never retries. The returned
// outcome is Success with a validated artifact (nil for remove), UseDefault
// for an update or remove that printed the sentinel, or Failure with a coded
// error.
func (i *Invoker) Invoke(ctx context.Context, b types.Bridge, op types.Operation, req types.Request) types.Outcome {
	logger := i.logger.With().
		Str("bridge", b.Name).
		Str("operation", string(op)).
		Str("exec_name", req.ExecName).
		Logger()

	if err := ctx.Err(); err != nil {
		return types.Failure(errors.Wrap(err, errors.ErrBridgeCancelled, "cancelled before start"))
	}

	targetDir := filepath.Join(i.targetDir, b.Name)
	if err := i.fs.MkdirAll(targetDir, 0755); err != nil {
		return types.Failure(errors.Wrapf(err, errors.ErrBridgeSpawnFailure, "failed to prepare %s", targetDir))
	}

	runCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, b.Executable, string(op), req.Input)
	cmd.Dir = b.Dir
	cmd.Env = buildEnv(i.environ(), b, op, req, targetDir)
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if logFile := i.openBridgeLog(b.Name, op, req); logFile != nil {
		defer logFile.Close()
		cmd.Stderr = io.MultiWriter(&stderr, logFile)
	}

	logger.Debug().Str("input", req.Input).Msg("Invoking bridge")
	start := time.Now()

	if err := cmd.Start(); err != nil {
		logger.Error().Err(err).Msg("Bridge could not be started")
		return types.Failure(errors.Wrapf(err, errors.ErrBridgeSpawnFailure, "failed to start %s", b.Executable))
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	logger.Debug().Int("exit_code", exitCode).Dur("duration", elapsed).Msg("Bridge finished")

	switch {
	case ctx.Err() != nil:
		return types.Failure(errors.Wrap(ctx.Err(), errors.ErrBridgeCancelled, "bridge was interrupted").
			WithDetail("bridge", b.Name))
	case stderrors.Is(runCtx.Err(), context.DeadlineExceeded):
		logger.Warn().Dur("timeout", i.timeout).Msg("Bridge timed out")
		return types.Failure(errors.Newf(errors.ErrBridgeTimeout, "bridge exceeded the %s timeout", i.timeout).
			WithDetail("bridge", b.Name))
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(waitErr, &exitErr) {
			return types.Failure(errors.Wrapf(waitErr, errors.ErrBridgeSpawnFailure, "failed to run %s", b.Executable))
		}
		return i.classifyExit(op, exitCode, stderr.String(), logger)
	}

	if op == types.OpRemove {
		return types.Success(nil)
	}

	artifact, err := ParseOutput(i.fs, stdout.String())
	if err != nil {
		logger.Warn().Err(err).Msg("Bridge output rejected")
		return types.Failure(err)
	}
	return types.Success(artifact)
}

func (i *Invoker) classifyExit(op types.Operation, code int, stderr string, logger zerolog.Logger) types.Outcome {
	if wantsDefault(stderr) {
		if op == types.OpInstall {
			return types.Failure(errors.Newf(errors.ErrBridgeContractViolated,
				"install cannot defer to a default implementation"))
		}
		logger.Debug().Msg("Bridge requested the default implementation")
		return types.UseDefault()
	}

	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", code)
	}
	logger.Warn().Int("exit_code", code).Str("stderr", msg).Msg("Bridge failed")
	return types.Failure(errors.New(errors.ErrBridgeNonZeroExit, msg).WithDetail("exit_code", code))
}

// openBridgeLog opens the per bridge log and writes a header for this
// invocation. Logging is best effort.
func (i *Invoker) openBridgeLog(bridge string, op types.Operation, req types.Request) *os.File {
	if i.logDir == "" {
		return nil
	}
	if err := os.MkdirAll(i.logDir, 0755); err != nil {
		i.logger.Debug().Err(err).Msg("Bridge log directory unavailable")
		return nil
	}
	f, err := os.OpenFile(filepath.Join(i.logDir, bridge+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		i.logger.Debug().Err(err).Msg("Bridge log unavailable")
		return nil
	}
	_, _ = fmt.Fprintf(f, "=== %s %s %s (%s)\n", time.Now().Format(time.RFC3339), op, req.ExecName, req.Input)
	return f
}

// Bind returns the raw operations of b.
func (i *Invoker) Bind(b types.Bridge) Operations {
	return &bound{invoker: i, bridge: b}
}

type bound struct {
	invoker *Invoker
	bridge  types.Bridge
}

func (o *bound) Install(ctx context.Context, req types.Request) types.Outcome {
	return o.invoker.Invoke(ctx, o.bridge, types.OpInstall, req)
}

func (o *bound) Update(ctx context.Context, req types.Request) types.Outcome {
	return o.invoker.Invoke(ctx, o.bridge, types.OpUpdate, req)
}

func (o *bound) Remove(ctx context.Context, req types.Request) types.Outcome {
	return o.invoker.Invoke(ctx, o.bridge, types.OpRemove, req)
}
