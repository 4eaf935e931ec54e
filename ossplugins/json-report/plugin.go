// Package jsonreport writes the run report as JSON to a file or stdout.
package jsonreport

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/pkg/pluginloader"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/types"
)

const Name = "json-report"

type Plugin struct {
	ctx    pluginsdk.Context
	path   string
	stdout io.Writer
	report *types.Report
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Init(ctx pluginsdk.Context) error {
	p.ctx = ctx
	if ctx.Config != nil {
		p.path = ctx.Config.GetOutputPath()
	}
	if p.stdout == nil {
		p.stdout = os.Stdout
	}
	return nil
}

func (p *Plugin) Process(report types.Report) error {
	p.report = &report
	return nil
}

func (p *Plugin) Finalize() error {
	if p.report == nil {
		return nil
	}
	out, err := json.MarshalIndent(p.report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	out = append(out, '\n')
	if p.path == "" {
		_, err = p.stdout.Write(out)
		return err
	}
	if err := os.WriteFile(p.path, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if p.ctx.Logger != nil {
		p.ctx.Logger.Info("report written", zap.String("path", p.path), zap.Int("bytes", len(out)))
	}
	return nil
}

func init() { pluginloader.Register(Name, func() pluginsdk.Plugin { return &Plugin{} }) }
