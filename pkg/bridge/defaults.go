package bridge

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/rs/zerolog"
)

// Operations is the capability set of a bridge.
type Operations interface {
	Install(ctx context.Context, req types.Request) types.Outcome
	Update(ctx context.Context, req types.Request) types.Outcome
	Remove(ctx context.Context, req types.Request) types.Outcome
}

// Unlinker removes the load path link of an exec name.
type Unlinker interface {
	Unlink(execName string) error
}

// Defaults implements the fallback update and remove used when a bridge
// answers with the sentinel.
type Defaults struct {
	fs     types.FS
	links  Unlinker
	logger zerolog.Logger
}

// NewDefaults returns the default operation provider.
func NewDefaults(fsys types.FS, links Unlinker) *Defaults {
	return &Defaults{fs: fsys, links: links, logger: logging.GetLogger("bridge.defaults")}
}

// Update re-runs install with the declared input and options. The previous
// artifact is deleted only once the reinstall succeeded at a different path.
func (d *Defaults) Update(ctx context.Context, ops Operations, req types.Request) types.Outcome {
	d.logger.Debug().Str("exec_name", req.ExecName).Msg("Default update: reinstalling")
	out := ops.Install(ctx, req)
	if out.Kind != types.OutcomeSuccess || req.Prior == nil || out.Artifact == nil {
		return out
	}

	old := filepath.Clean(req.Prior.Path)
	if old == filepath.Clean(out.Artifact.Path) {
		return out
	}
	if err := d.fs.RemoveAll(old); err != nil && !os.IsNotExist(err) {
		d.logger.Warn().Err(err).Str("exec_name", req.ExecName).Str("path", old).Msg("Failed to delete previous artifact")
	}
	return out
}

// Remove deletes the artifact and the link. Both being absent already counts
// as success. The caller deletes the store row afterwards.
func (d *Defaults) Remove(ctx context.Context, req types.Request) types.Outcome {
	if req.Prior == nil {
		return types.Failure(errors.Newf(errors.ErrInternal, "no installed record for %s", req.ExecName))
	}
	if err := ctx.Err(); err != nil {
		return types.Failure(errors.Wrap(err, errors.ErrBridgeCancelled, "cancelled before default remove"))
	}

	if err := d.fs.RemoveAll(req.Prior.Path); err != nil && !os.IsNotExist(err) {
		return types.Failure(errors.Wrapf(err, errors.ErrFileAccess, "failed to delete %s", req.Prior.Path))
	}
	if err := d.links.Unlink(req.ExecName); err != nil {
		return types.Failure(err)
	}
	d.logger.Debug().Str("exec_name", req.ExecName).Str("path", req.Prior.Path).Msg("Default remove completed")
	return types.Success(nil)
}

// WithDefaults wraps ops so that UseDefault answers from update and remove
// are served by d. Callers only ever see Success or Failure.
func WithDefaults(ops Operations, d *Defaults) Operations {
	return &defaulting{inner: ops, defaults: d}
}

type defaulting struct {
	inner    Operations
	defaults *Defaults
}

func (o *defaulting) Install(ctx context.Context, req types.Request) types.Outcome {
	out := o.inner.Install(ctx, req)
	if out.Kind == types.OutcomeUseDefault {
		return types.Failure(errors.New(errors.ErrBridgeContractViolated,
			"install cannot defer to a default implementation"))
	}
	return out
}

func (o *defaulting) Update(ctx context.Context, req types.Request) types.Outcome {
	out := o.inner.Update(ctx, req)
	if out.Kind != types.OutcomeUseDefault {
		return out
	}
	return o.defaults.Update(ctx, o, req)
}

func (o *defaulting) Remove(ctx context.Context, req types.Request) types.Outcome {
	out := o.inner.Remove(ctx, req)
	if out.Kind != types.OutcomeUseDefault {
		return out
	}
	return o.defaults.Remove(ctx, req)
}
