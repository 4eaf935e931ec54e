package processor

import "github.com/pshmarlow/scripts-demos/types"

// EventProcessor receives every event a pipeline finalizes.
type EventProcessor interface {
	Process(types.Event) error
}

// ResultsCollector renders what an EventProcessor gathered into a report.
type ResultsCollector interface {
	Results(window *types.Window, stats types.Stats) types.Report
}
