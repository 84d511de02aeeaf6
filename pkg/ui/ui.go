// Package ui renders reconciliation reports, package listings and bridge
// listings as styled terminal output, plain text or JSON, and exports
// reports as JUnit XML.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/links"
	"github.com/arthur-debert/bridgepm/pkg/types"
)

// PackageView is an installed package together with the state of its link.
type PackageView struct {
	types.InstalledPackage
	Link links.State
}

// Renderer is implemented by every output format.
type Renderer interface {
	// RenderReport prints the outcome of a reconciliation run.
	RenderReport(report *types.Report) error
	// RenderPackages prints installed packages. long adds paths and dates.
	RenderPackages(pkgs []PackageView, long bool) error
	// RenderBridges prints the bridges found in the bridges directory.
	RenderBridges(entries []bridge.Entry) error
	RenderMessage(msg string) error
	RenderError(err error) error
}

// NewRenderer creates a renderer for format. FormatAuto is resolved
// against output when it is a file and falls back to text otherwise.
func NewRenderer(format Format, output io.Writer) (Renderer, error) {
	switch format {
	case FormatAuto:
		if file, ok := output.(*os.File); ok {
			return NewRenderer(DetectFormat(file), output)
		}
		return NewRenderer(FormatText, output)
	case FormatTerminal:
		return &terminalRenderer{w: output}, nil
	case FormatText:
		return &textRenderer{w: output}, nil
	case FormatJSON:
		return newJSONRenderer(output), nil
	default:
		return nil, fmt.Errorf("unknown format: %v", format)
	}
}

// summaryCounts lists the non-zero status counts of r in a fixed order.
func summaryCounts(r *types.Report) []statusCount {
	var out []statusCount
	for _, s := range []types.Status{
		types.StatusInstalled,
		types.StatusUpdated,
		types.StatusRemoved,
		types.StatusSkipped,
		types.StatusFailed,
	} {
		if n := r.Count(s); n > 0 {
			out = append(out, statusCount{status: s, n: n})
		}
	}
	return out
}

type statusCount struct {
	status types.Status
	n      int
}

// detail is the trailing text of a report line.
func detail(res types.OperationResult) string {
	switch res.Status {
	case types.StatusFailed:
		if res.Category != "" {
			return res.Category + ": " + res.Reason
		}
		return res.Reason
	case types.StatusUpdated, types.StatusInstalled:
		if res.PreviousVersion != "" && res.PreviousVersion != res.Version {
			return fmt.Sprintf("%s -> %s (%s)", res.PreviousVersion, res.Version, res.Change)
		}
		if res.Action == types.ActionReplace || res.Action == types.ActionUpdate {
			return res.Reason
		}
	case types.StatusSkipped, types.StatusRemoved:
		return res.Reason
	}
	return ""
}
