package app

import (
	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/pkg/processor"
	"github.com/pshmarlow/scripts-demos/types"
)

// Window bounds the processed period from the scanned sources, in scan
// order. Start is the first leading timestamp near the head of the earliest
// source that has one; End is the last leading timestamp near the tail of
// the latest such source. It returns nil when either bound is missing.
func Window(results []processor.Result, year int) *types.Window {
	var start, end string
	for _, r := range results {
		if !r.Unavailable && r.FirstStamp != "" {
			start = r.FirstStamp
			break
		}
	}
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Unavailable {
			continue
		}
		if s, ok := results[i].TailStamp(); ok {
			end = s
			break
		}
	}
	if start == "" || end == "" {
		return nil
	}
	st, err := lib.ParseLogTimestamp(start, year)
	if err != nil {
		return nil
	}
	et, err := lib.ParseLogTimestamp(end, year)
	if err != nil {
		return nil
	}
	return &types.Window{Start: st, End: et}
}
