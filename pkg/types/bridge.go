package types

// Operation is one of the three bridge operations.
type Operation string

const (
	OpInstall Operation = "install"
	OpUpdate  Operation = "update"
	OpRemove  Operation = "remove"
)

// Bridge is a resolved bridge executable.
type Bridge struct {
	Name string
	// Dir is the bridge directory, used as the working directory.
	Dir string
	// Executable is the absolute path of Dir/run.
	Executable string
}

// Request carries everything a bridge operation needs.
type Request struct {
	ExecName string
	Input    string
	Options  Options
	// Prior is the installed record for update and remove.
	Prior *InstalledPackage
}

// OutcomeKind is the closed set of bridge invocation results.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeUseDefault
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeUseDefault:
		return "use-default"
	default:
		return "failure"
	}
}

// Outcome is the classified result of one bridge operation.
type Outcome struct {
	Kind OutcomeKind
	// Artifact is set for successful install and update.
	Artifact *Artifact
	// Err is set for failures and carries a coded error.
	Err error
}

// Artifact is what a bridge reports on a successful install or update.
type Artifact struct {
	Path       string
	Version    string
	EntryPoint string
	Type       PkgType
}

// Success builds a successful outcome.
func Success(a *Artifact) Outcome { return Outcome{Kind: OutcomeSuccess, Artifact: a} }

// UseDefault builds an outcome asking for the default operation.
func UseDefault() Outcome { return Outcome{Kind: OutcomeUseDefault} }

// Failure builds a failed outcome.
func Failure(err error) Outcome { return Outcome{Kind: OutcomeFailure, Err: err} }

// Installed builds the record stored after a successful install or update.
func (a Artifact) Installed(req Request, bridge string) InstalledPackage {
	return InstalledPackage{
		ExecName:   req.ExecName,
		Bridge:     bridge,
		Input:      req.Input,
		Options:    req.Options,
		Type:       a.Type,
		Version:    a.Version,
		Path:       a.Path,
		EntryPoint: a.EntryPoint,
	}
}
