package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
)

// terminalRenderer uses lipgloss for reports and pterm tables for listings.
type terminalRenderer struct {
	w io.Writer
}

func (r *terminalRenderer) RenderReport(report *types.Report) error {
	if len(report.Results) == 0 {
		return r.RenderMessage("Nothing to do")
	}

	nameWidth, bridgeWidth := 0, 0
	for _, res := range report.Results {
		nameWidth = max(nameWidth, lipgloss.Width(res.ExecName))
		bridgeWidth = max(bridgeWidth, lipgloss.Width(res.Bridge))
	}

	var b strings.Builder
	for _, res := range report.Results {
		status := statusStyle(res.Status).Render(fmt.Sprintf("%-9s", res.Status))
		line := fmt.Sprintf("%s %s %s %s %s",
			statusIndicator(res.Status),
			status,
			nameStyle.Render(pad(res.ExecName, nameWidth)),
			bridgeStyle.Render(pad(res.Bridge, bridgeWidth)),
			res.Version,
		)
		if d := detail(res); d != "" {
			if res.Status == types.StatusFailed {
				d = errorStyle.Render(d)
			} else {
				d = mutedStyle.Render(d)
			}
			line += "  " + d
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + r.summary(report) + "\n")
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *terminalRenderer) summary(report *types.Report) string {
	var parts []string
	for _, c := range summaryCounts(report) {
		parts = append(parts, statusStyle(c.status).Render(fmt.Sprintf("%d %s", c.n, c.status)))
	}
	line := titleStyle.Render(report.Command+":") + " " + strings.Join(parts, ", ") +
		mutedStyle.Render(fmt.Sprintf(" in %s", report.Duration.Round(time.Millisecond)))
	if report.Cancelled {
		line += " " + errorStyle.Render("(interrupted)")
	}
	return line
}

func (r *terminalRenderer) RenderPackages(pkgs []PackageView, long bool) error {
	if len(pkgs) == 0 {
		return r.RenderMessage("No packages installed")
	}

	header := []string{"NAME", "BRIDGE", "VERSION", "TYPE", "LINK"}
	if long {
		header = append(header, "INPUT", "PATH", "UPDATED")
	}
	data := pterm.TableData{header}
	for _, p := range pkgs {
		link := string(p.Link)
		if p.PendingRemoval {
			link = "pending removal"
		}
		row := []string{
			pterm.Bold.Sprint(p.ExecName),
			p.Bridge,
			p.Version,
			string(p.Type),
			linkStyle(p.Link).Sprint(link),
		}
		if long {
			row = append(row, p.Input, p.LinkTarget(), p.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		data = append(data, row)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, table)
	return err
}

func (r *terminalRenderer) RenderBridges(entries []bridge.Entry) error {
	if len(entries) == 0 {
		return r.RenderMessage("No bridges found")
	}
	data := pterm.TableData{{"BRIDGE", "RUN", "STATUS"}}
	for _, e := range entries {
		status := pterm.FgGreen.Sprint("ok")
		if e.Err != nil {
			status = pterm.FgRed.Sprint(errors.Message(e.Err))
		}
		data = append(data, []string{pterm.Bold.Sprint(e.Name), e.Bridge.Executable, status})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, table)
	return err
}

func (r *terminalRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.w, mutedStyle.Render(msg))
	return err
}

func (r *terminalRenderer) RenderError(err error) error {
	label := errorStyle.Render("Error:")
	if code := errors.GetErrorCode(err); code != errors.ErrUnknown && code != "" {
		label = errorStyle.Render(string(code) + ":")
	}
	_, werr := fmt.Fprintf(r.w, "%s %s\n", label, errors.Message(err))
	return werr
}

func pad(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
