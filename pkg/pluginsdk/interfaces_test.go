package pluginsdk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterMetrics(t *testing.T) {
	m := NewCounterMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncCounter("events_admitted", map[string]string{"kind": "OOM"})
		}()
	}
	wg.Wait()
	m.IncCounter("events_admitted", map[string]string{"kind": "TxSentry"})
	m.ObserveHistogram("ignored", 1, nil)

	require.Equal(t, 11, m.Count("events_admitted", nil))
	require.Equal(t, 10, m.Count("events_admitted", map[string]string{"kind": "OOM"}))
	require.Equal(t, 0, m.Count("ignored", nil))
}
