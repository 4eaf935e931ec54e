// Package s3archive uploads the gzip-compressed report to an object store.
package s3archive

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/pkg/pluginloader"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/types"
)

const (
	Name   = "s3-archive"
	Object = "report.json.gz"
)

type Plugin struct {
	ctx    pluginsdk.Context
	report *types.Report
	// Location is where the last report was uploaded.
	Location string
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Init(ctx pluginsdk.Context) error {
	if ctx.Objects == nil {
		return errors.New("s3-archive needs an object store (set --s3-url)")
	}
	p.ctx = ctx
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
	body, err := Compress(*p.report)
	if err != nil {
		return err
	}
	runID := "run"
	if p.ctx.Config != nil && p.ctx.Config.GetRunID() != "" {
		runID = p.ctx.Config.GetRunID()
	}
	loc, err := p.ctx.Objects.PutObject(p.ctx.Ctx, path.Join(runID, Object), body, "application/json", "gzip")
	if err != nil {
		return err
	}
	p.Location = loc
	if p.ctx.Logger != nil {
		p.ctx.Logger.Info("report archived", zap.String("location", loc), zap.Int("bytes", len(body)))
	}
	return nil
}

// Compress renders report as gzip-compressed JSON.
func Compress(report types.Report) ([]byte, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var buf bytes.Buffer
	gz, _ := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if _, err := gz.Write(raw); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	return buf.Bytes(), nil
}

func init() { pluginloader.Register(Name, func() pluginsdk.Plugin { return &Plugin{} }) }
