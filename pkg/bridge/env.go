package bridge

import (
	"strings"

	"github.com/arthur-debert/bridgepm/pkg/types"
)

// buildEnv layers the invocation variables over base. Declared options are
// exported under their own names; for update and remove the prior record is
// exported under the BRIDGEPM_PKG_* and BRIDGEPM_PRIOR_* names.
func buildEnv(base []string, b types.Bridge, op types.Operation, req types.Request, targetDir string) []string {
	env := make([]string, 0, len(base)+len(req.Options)+8)
	env = append(env, base...)
	env = append(env, req.Options.Env("")...)
	env = append(env,
		EnvOperation+"="+string(op),
		EnvExecName+"="+req.ExecName,
		EnvBridge+"="+b.Name,
		EnvTargetDir+"="+targetDir,
	)

	if req.Prior != nil && op != types.OpInstall {
		p := req.Prior
		env = append(env,
			EnvPkgPath+"="+p.Path,
			EnvPkgVersion+"="+p.Version,
			EnvPkgType+"="+string(p.Type),
			EnvPkgEntry+"="+p.EntryPoint,
			EnvPriorOptions+"="+strings.Join(p.Options.Names(), ","),
		)
		env = append(env, p.Options.Env(EnvPriorPrefix)...)
	}
	return env
}
