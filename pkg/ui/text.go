package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/types"
)

// textRenderer prints aligned plain text, suitable for pipes and logs.
type textRenderer struct {
	w io.Writer
}

func (r *textRenderer) RenderReport(report *types.Report) error {
	if len(report.Results) == 0 {
		return r.RenderMessage("Nothing to do")
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	for _, res := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", res.Status, res.ExecName, res.Bridge, res.Version, detail(res))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var parts []string
	for _, c := range summaryCounts(report) {
		parts = append(parts, fmt.Sprintf("%d %s", c.n, c.status))
	}
	line := fmt.Sprintf("%s: %s in %s", report.Command, strings.Join(parts, ", "), report.Duration.Round(time.Millisecond))
	if report.Cancelled {
		line += " (interrupted)"
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func (r *textRenderer) RenderPackages(pkgs []PackageView, long bool) error {
	if len(pkgs) == 0 {
		return r.RenderMessage("No packages installed")
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	for _, p := range pkgs {
		link := string(p.Link)
		if p.PendingRemoval {
			link = "pending-removal"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s", p.ExecName, p.Bridge, p.Version, p.Type, link)
		if long {
			fmt.Fprintf(tw, "\t%s\t%s\t%s", p.Input, p.LinkTarget(), p.UpdatedAt.UTC().Format(time.RFC3339))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func (r *textRenderer) RenderBridges(entries []bridge.Entry) error {
	if len(entries) == 0 {
		return r.RenderMessage("No bridges found")
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		status := "ok"
		if e.Err != nil {
			status = errors.Message(e.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Bridge.Executable, status)
	}
	return tw.Flush()
}

func (r *textRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.w, msg)
	return err
}

func (r *textRenderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.w, "Error: %s\n", errors.Message(err))
	return werr
}
