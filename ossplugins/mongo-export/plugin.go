// Package mongoexport stores each kind table in its own MongoDB collection,
// plus one summary document per run.
package mongoexport

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/pkg/pluginloader"
	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	"github.com/pshmarlow/scripts-demos/types"
)

const (
	Name = "mongo-export"
	// RunsCollection holds the per-run summary.
	RunsCollection = "runs"
)

type Plugin struct {
	ctx    pluginsdk.Context
	report *types.Report
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Init(ctx pluginsdk.Context) error {
	if ctx.Storage == nil {
		return errors.New("mongo-export needs a storage backend")
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
	ctx := p.ctx.Ctx
	for _, kr := range p.report.Kinds {
		if len(kr.Data) == 0 {
			continue
		}
		coll := lib.CollectionName(string(kr.Kind))
		if err := p.ctx.Storage.StoreResults(ctx, Documents(kr), coll); err != nil {
			return fmt.Errorf("store %s: %w", coll, err)
		}
		p.logger().Info("stored kind", zap.String("collection", coll), zap.Int("records", len(kr.Data)))
	}
	return p.ctx.Storage.StoreResults(ctx, []interface{}{Summary(p.runID(), *p.report)}, RunsCollection)
}

func (p *Plugin) runID() string {
	if p.ctx.Config == nil {
		return ""
	}
	return p.ctx.Config.GetRunID()
}

func (p *Plugin) logger() *zap.Logger {
	if p.ctx.Logger == nil {
		return zap.NewNop()
	}
	return p.ctx.Logger
}

// Documents converts the records of a kind into insertable documents.
func Documents(kr types.KindReport) []interface{} {
	docs := make([]interface{}, len(kr.Data))
	for i, rec := range kr.Data {
		doc := make(bson.M, len(rec)+1)
		for k, v := range rec {
			doc[k] = v
		}
		doc["kind"] = string(kr.Kind)
		docs[i] = doc
	}
	return docs
}

// Summary is the runs document: window, counters and per-kind headers.
func Summary(runID string, report types.Report) bson.M {
	kinds := bson.M{}
	for _, kr := range report.Kinds {
		kinds[string(kr.Kind)] = bson.M{
			"collection": lib.CollectionName(string(kr.Kind)),
			"records":    len(kr.Data),
			"headers":    kr.Headers,
		}
	}
	doc := bson.M{
		"run_id": runID,
		"stats":  report.Stats,
		"kinds":  kinds,
	}
	if w := report.Metadata; w != nil {
		doc["metadata"] = bson.M{"start": w.Start, "end": w.End}
	}
	return doc
}

func init() { pluginloader.Register(Name, func() pluginsdk.Plugin { return &Plugin{} }) }
