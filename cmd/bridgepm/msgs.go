package bridgepm

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "A declarative package manager built on bridges"
	MsgBuildShort      = "Install, update and remove packages to match the inputs"
	MsgRebuildShort    = "Reinstall every declared package"
	MsgUpdateShort     = "Update installed packages"
	MsgRemoveShort     = "Remove installed packages"
	MsgInfoShort       = "Show installed packages"
	MsgLinkShort       = "Recreate the load path from the package store"
	MsgBridgesShort    = "List available bridges"
	MsgCleanShort      = "Delete bridge logs and cached data"
	MsgConfigShort     = "Print the effective configuration"
	MsgDocsShort       = "Read the bridgepm guides"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgDryRunNotice   = "Dry run: nothing was changed"
	MsgLinkedFormat   = "Linked %d packages, pruned %d stale links"
	MsgCleanedFormat  = "Removed %s"
	MsgNothingToClean = "Nothing to clean"
	MsgVersionFormat  = "bridgepm %s (commit %s, built %s)\n"
	MsgDocsTopics     = "Available guides:"
	MsgDocsItem       = "  %s\n"
	MsgWouldFormat    = "would %s: %s"

	// Error messages
	MsgErrPackagesFailed = "one or more packages failed"
	MsgErrUnknownTopic   = "unknown guide %q, run 'bridgepm docs' for the list"
	MsgErrLinkFailed     = "%d links could not be created"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig    = "Use this config file instead of $XDG_CONFIG_HOME/bridgepm/config.toml"
	MsgFlagWorkers   = "Number of packages processed concurrently"
	MsgFlagTimeout   = "Maximum run time of a single bridge invocation"
	MsgFlagFormat    = "Output format: auto, term, text or json"
	MsgFlagDryRun    = "Show the plan without changing anything"
	MsgFlagUpdate    = "Also update packages that did not change"
	MsgFlagReportXML = "Write a JUnit XML report to this file"
	MsgFlagBridge    = "Only show packages of this bridge"
	MsgFlagLong      = "Show inputs, link targets and update times"
	MsgFlagDefaults  = "Print the built-in defaults instead"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/build-long.txt
	msgBuildLongRaw string
	MsgBuildLong    = strings.TrimSpace(msgBuildLongRaw)

	//go:embed msgs/build-example.txt
	msgBuildExampleRaw string
	MsgBuildExample    = strings.TrimRight(msgBuildExampleRaw, "\n")

	//go:embed msgs/rebuild-long.txt
	msgRebuildLongRaw string
	MsgRebuildLong    = strings.TrimSpace(msgRebuildLongRaw)

	//go:embed msgs/update-long.txt
	msgUpdateLongRaw string
	MsgUpdateLong    = strings.TrimSpace(msgUpdateLongRaw)

	//go:embed msgs/update-example.txt
	msgUpdateExampleRaw string
	MsgUpdateExample    = strings.TrimRight(msgUpdateExampleRaw, "\n")

	//go:embed msgs/remove-long.txt
	msgRemoveLongRaw string
	MsgRemoveLong    = strings.TrimSpace(msgRemoveLongRaw)

	//go:embed msgs/info-long.txt
	msgInfoLongRaw string
	MsgInfoLong    = strings.TrimSpace(msgInfoLongRaw)

	//go:embed msgs/link-long.txt
	msgLinkLongRaw string
	MsgLinkLong    = strings.TrimSpace(msgLinkLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
