package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/beevik/etree"
)

// WriteJUnit writes report as a JUnit XML test suite so CI systems can show
// per package results. Each package is a test case; failures carry their
// category as the failure type and skips are marked skipped.
func WriteJUnit(w io.Writer, report *types.Report) error {
	doc := JUnitDocument(report)
	_, err := doc.WriteTo(w)
	return err
}

// WriteJUnitFile writes the JUnit XML of report to path, creating parent
// directories.
func WriteJUnitFile(path string, report *types.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create directory for %s", path)
	}
	if err := JUnitDocument(report).WriteToFile(path); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to write report %s", path)
	}
	return nil
}

// JUnitDocument builds the XML tree for report.
func JUnitDocument(report *types.Report) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "bridgepm "+report.Command)
	suite.CreateAttr("tests", fmt.Sprint(len(report.Results)))
	suite.CreateAttr("failures", fmt.Sprint(report.Count(types.StatusFailed)))
	suite.CreateAttr("skipped", fmt.Sprint(report.Count(types.StatusSkipped)))
	suite.CreateAttr("time", seconds(report.Duration.Seconds()))
	if !report.StartedAt.IsZero() {
		suite.CreateAttr("timestamp", report.StartedAt.UTC().Format("2006-01-02T15:04:05"))
	}

	if report.Cancelled {
		props := suite.CreateElement("properties")
		p := props.CreateElement("property")
		p.CreateAttr("name", "cancelled")
		p.CreateAttr("value", "true")
	}

	for _, res := range report.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", res.Bridge)
		tc.CreateAttr("name", res.ExecName)
		tc.CreateAttr("time", seconds(res.Duration.Seconds()))

		switch res.Status {
		case types.StatusFailed:
			f := tc.CreateElement("failure")
			f.CreateAttr("type", res.Category)
			f.CreateAttr("message", res.Reason)
			if res.Err != nil {
				f.SetText(res.Err.Error())
			}
		case types.StatusSkipped:
			s := tc.CreateElement("skipped")
			s.CreateAttr("message", res.Reason)
		default:
			out := tc.CreateElement("system-out")
			out.SetText(fmt.Sprintf("%s %s %s", res.Action, res.Status, res.Version))
		}
	}

	doc.Indent(2)
	return doc
}

func seconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}
