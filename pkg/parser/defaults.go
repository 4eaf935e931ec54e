package parser

import (
	"github.com/pshmarlow/scripts-demos/types"
)

// datePrefix captures the yearless syslog date.
const datePrefix = `(?P<date>\w{3}\s+\d+\s+\d+:\d+:\d+)`

const (
	ReferenceDataMessage    = "We have crossed the update threshold"
	ConnectLocalhostMessage = "Unable to connect to server localhost:"
)

var timeDateHeader = types.Header{Key: types.FieldTimeDate, Header: "Time/Date"}

var serviceHeader = types.Header{Key: types.FieldService, Header: "Service Name"}

// DefaultSpecs returns the built-in kinds in report order.
func DefaultSpecs() []KindSpec {
	return []KindSpec{
		{
			Kind:     types.KindOOM,
			Keywords: []string{"OutOfMemoryMonitor", "java.lang.OutOfMemoryError"},
			Rules: []Rule{
				MustRegexRule(datePrefix+`\s+\S+\s+OutOfMemoryMonitor\[\d+\]: Discovered out-of-memory error for (?P<service>[^(]+)\(type`, types.FieldService),
				MustRegexRule(datePrefix+`\s+\S+\s+OutOfMemoryMonitor\[\d+\]: Discovered out-of-memory error for (?P<service>\S+)\s+process\.`, types.FieldService),
				MustRegexRule(datePrefix+`.*\[(?P<service>Thread-\d+)\]\s+java\.lang\.OutOfMemoryError`, types.FieldService),
			},
			Discriminators: []string{types.FieldService},
			Headers:        []types.Header{timeDateHeader, serviceHeader},
		},
		{
			Kind:     types.KindTxSentry,
			Keywords: []string{"TxSentry"},
			Rules: []Rule{
				MustRegexRule(datePrefix+`.*\[hostcontext\.hostcontext\]\s+\[(?P<thread_key>[^/]+)/Sequential.*TxSentry.*Found unmanaged process on host .*: (?P<service>\S+), pid=(?P<pid>\d+)`,
					types.FieldThreadKey, types.FieldService),
				MustRegexRule(datePrefix+`.*\[hostcontext\.hostcontext\]\s+\[(?P<thread_key>[^/]+)/Sequential.*TxSentry:.*TX on host .*: pid=(?P<pid>\d+).* query='(?P<query>.+)'`,
					types.FieldThreadKey, types.FieldQuery),
				MustRegexRule(datePrefix+`.*\[hostcontext\.hostcontext\]\s+\[(?P<thread_key>[^/]+)/Sequential.*TxSentry:.*Found a process on host .*: (?P<service>\S+), pid=(?P<pid>\d+)`,
					types.FieldThreadKey, types.FieldService),
			},
			Discriminators: []string{types.FieldService, types.FieldQuery},
			Headers: []types.Header{
				timeDateHeader,
				serviceHeader,
				{Key: types.FieldQuery, Header: "Query"},
			},
			Correlation: &CorrelationSpec{
				Primary:          types.FieldService,
				Secondary:        types.FieldQuery,
				Key:              types.FieldThreadKey,
				ResetOnUnrelated: true,
			},
		},
		{
			Kind:     types.KindReferenceDataThreshold,
			Keywords: []string{"ReferenceDataProcessorThread"},
			Rules: []Rule{
				MustRegexRule(datePrefix + `.*ReferenceDataProcessorThread - We have crossed the update threshold`).
					WithSet(map[string]string{types.FieldMessage: ReferenceDataMessage}),
			},
			Headers: []types.Header{timeDateHeader, {Key: types.FieldMessage, Header: "Message"}},
		},
		{
			Kind:     types.KindExpensiveRules,
			Keywords: []string{"Expensive Custom Rules Based On Average Throughput"},
			Rules: []Rule{
				MustRegexRule(datePrefix+`.*Expensive Custom Rules Based On Average Throughput: (?P<rules>.*)`, "rules"),
			},
			Discriminators: []string{"rules"},
			Headers:        []types.Header{timeDateHeader, {Key: "rules", Header: "Rules Details"}},
		},
		{
			Kind:     types.KindTooManyOpenFiles,
			Keywords: []string{"Too many open "},
			Rules: []Rule{
				MustRegexRule(datePrefix+`.*\[\S+\.(?P<service>[^\]\s]+)\].*Too many open `, types.FieldService),
				MustRegexRule(datePrefix+`.*\s(?P<service>\S+)\[\d+\]: .*Too many open `, types.FieldService),
				MustRegexRule(datePrefix+`\s+.*?\s+(?P<service>\w+)[\[(].*Too many open files`, types.FieldService),
				MustRegexRule(datePrefix+`\s+.*?\[(?P<service>[^\]]+)\].*Too many open files`, types.FieldService),
			},
			Discriminators: []string{types.FieldService},
			Headers:        []types.Header{timeDateHeader, serviceHeader},
		},
		{
			Kind:     types.KindCacheOverflow,
			Keywords: []string{"ChainAppendCache"},
			Rules: []Rule{
				MustRegexRule(datePrefix+`.*?\[(?P<service>[^.\]\s]+)[^\]]*\].*com\.q1labs\.frameworks\.cache\.ChainAppendCache: \[WARN\].*\[-/- -\](?P<cache>\S+)(?P<message>.*)`,
					types.FieldService, "cache").
					WithSet(map[string]string{types.FieldMessage: "${cache} ${message}"}),
			},
			Discriminators: []string{types.FieldService, "cache", types.FieldMessage},
			Headers:        []types.Header{timeDateHeader, serviceHeader, {Key: "cache", Header: "Cache Name"}},
		},
		{
			Kind:     types.KindDroppedReceive,
			Keywords: []string{"Dropped receive packets on interface "},
			Rules: []Rule{
				MustRegexRule(datePrefix+`\s+.*Dropped receive packets on interface (?P<interface>\S+) has an average of (?P<over_5_intervals>\d+(?:\.\d+)?) over the past.*intervals, and has exceeded the configured threshold of (?P<threshold>\d+(?:\.\d+)?)`,
					"interface", "over_5_intervals", "threshold"),
			},
			Discriminators: []string{"interface"},
			Headers: []types.Header{
				timeDateHeader,
				{Key: "interface", Header: "Interface"},
				{Key: "over_5_intervals", Header: "Over 5 Intervals"},
				{Key: "threshold", Header: "Threshold"},
			},
		},
		{
			Kind:     types.KindConnectLocalhost,
			Keywords: []string{"Unable to connect to server localhost:"},
			Rules: []Rule{
				MustRegexRule(datePrefix+`\s+.*\]Unable to connect to server localhost:(?P<port>\d+)`, "port").
					WithSet(map[string]string{types.FieldMessage: ConnectLocalhostMessage}),
			},
			Discriminators: []string{"port"},
			Headers: []types.Header{
				timeDateHeader,
				{Key: types.FieldMessage, Header: "Message"},
				{Key: "port", Header: "Port"},
			},
		},
	}
}

// DefaultRegistry returns a Registry over DefaultSpecs.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultSpecs()...)
	if err != nil {
		panic(err)
	}
	return r
}
