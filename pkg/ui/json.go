package ui

import (
	"encoding/json"
	"io"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/types"
)

// jsonRenderer writes one indented JSON document per call.
type jsonRenderer struct {
	encoder *json.Encoder
}

func newJSONRenderer(w io.Writer) *jsonRenderer {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &jsonRenderer{encoder: encoder}
}

type reportDoc struct {
	Command    string         `json:"command"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Cancelled  bool           `json:"cancelled"`
	Summary    map[string]int `json:"summary"`
	Results    []resultDoc    `json:"results"`
}

type resultDoc struct {
	ExecName        string `json:"exec_name"`
	Bridge          string `json:"bridge"`
	Action          string `json:"action"`
	Status          string `json:"status"`
	Version         string `json:"version,omitempty"`
	PreviousVersion string `json:"previous_version,omitempty"`
	Change          string `json:"change,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Category        string `json:"category,omitempty"`
	Code            string `json:"code,omitempty"`
	DurationMS      int64  `json:"duration_ms"`
}

type packageDoc struct {
	ExecName       string            `json:"exec_name"`
	Bridge         string            `json:"bridge"`
	Input          string            `json:"input"`
	Options        map[string]string `json:"options,omitempty"`
	Type           string            `json:"type"`
	Version        string            `json:"version"`
	Path           string            `json:"path"`
	EntryPoint     string            `json:"entry_point,omitempty"`
	Link           string            `json:"link"`
	PendingRemoval bool              `json:"pending_removal"`
	InstalledAt    time.Time         `json:"installed_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type bridgeDoc struct {
	Name       string `json:"name"`
	Executable string `json:"executable,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (r *jsonRenderer) RenderReport(report *types.Report) error {
	doc := reportDoc{
		Command:    report.Command,
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
		Cancelled:  report.Cancelled,
		Summary:    map[string]int{},
		Results:    make([]resultDoc, 0, len(report.Results)),
	}
	for _, c := range summaryCounts(report) {
		doc.Summary[string(c.status)] = c.n
	}
	for _, res := range report.Results {
		rd := resultDoc{
			ExecName:        res.ExecName,
			Bridge:          res.Bridge,
			Action:          string(res.Action),
			Status:          string(res.Status),
			Version:         res.Version,
			PreviousVersion: res.PreviousVersion,
			Change:          string(res.Change),
			Reason:          res.Reason,
			Category:        res.Category,
			DurationMS:      res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			rd.Code = string(errors.GetErrorCode(res.Err))
		}
		doc.Results = append(doc.Results, rd)
	}
	return r.encoder.Encode(doc)
}

func (r *jsonRenderer) RenderPackages(pkgs []PackageView, _ bool) error {
	docs := make([]packageDoc, 0, len(pkgs))
	for _, p := range pkgs {
		d := packageDoc{
			ExecName:       p.ExecName,
			Bridge:         p.Bridge,
			Input:          p.Input,
			Type:           string(p.Type),
			Version:        p.Version,
			Path:           p.Path,
			EntryPoint:     p.EntryPoint,
			Link:           string(p.Link),
			PendingRemoval: p.PendingRemoval,
			InstalledAt:    p.InstalledAt,
			UpdatedAt:      p.UpdatedAt,
		}
		if len(p.Options) > 0 {
			d.Options = make(map[string]string, len(p.Options))
			for _, o := range p.Options {
				d.Options[o.Name] = o.Value.String()
			}
		}
		docs = append(docs, d)
	}
	return r.encoder.Encode(docs)
}

func (r *jsonRenderer) RenderBridges(entries []bridge.Entry) error {
	docs := make([]bridgeDoc, 0, len(entries))
	for _, e := range entries {
		d := bridgeDoc{Name: e.Name, Executable: e.Bridge.Executable}
		if e.Err != nil {
			d.Error = errors.Message(e.Err)
		}
		docs = append(docs, d)
	}
	return r.encoder.Encode(docs)
}

func (r *jsonRenderer) RenderMessage(msg string) error {
	return r.encoder.Encode(map[string]string{"message": msg})
}

func (r *jsonRenderer) RenderError(err error) error {
	return r.encoder.Encode(map[string]string{
		"error": errors.Message(err),
		"code":  string(errors.GetErrorCode(err)),
	})
}
