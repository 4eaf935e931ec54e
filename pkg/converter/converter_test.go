package converter

import (
	"errors"
	"testing"
	"time"

	"github.com/pshmarlow/scripts-demos/lib"
	"github.com/pshmarlow/scripts-demos/pkg/parser"
	"github.com/pshmarlow/scripts-demos/types"
	"github.com/stretchr/testify/require"
)

func specFor(t *testing.T, kind types.Kind) parser.KindSpec {
	t.Helper()
	spec, ok := parser.DefaultRegistry().Spec(kind)
	require.True(t, ok)
	return spec
}

func TestConvertOOM(t *testing.T) {
	m := types.RawMatch{
		Kind:   types.KindOOM,
		Fields: map[string]string{"date": "Jan  1 10:00:00", "service": "svcA"},
		Source: 2,
		Line:   17,
	}
	evt, err := Convert(m, specFor(t, types.KindOOM), Options{Year: 2024})
	require.NoError(t, err)
	require.Equal(t, types.KindOOM, evt.Kind)
	require.True(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).Equal(evt.Timestamp))
	require.Equal(t, map[string]string{"service": "svcA"}, evt.Fields)
	require.Empty(t, evt.ThreadKey)
	require.Equal(t, 2, evt.Source)
	require.Equal(t, 17, evt.Line)
}

func TestConvertMovesCorrelationKey(t *testing.T) {
	m := types.RawMatch{
		Kind:   types.KindTxSentry,
		Fields: map[string]string{"date": "Jan  2 09:00:00", "service": "ecs-ep", "thread_key": "T1", "pid": "9"},
	}
	evt, err := Convert(m, specFor(t, types.KindTxSentry), Options{Year: 2023})
	require.NoError(t, err)
	require.Equal(t, "T1", evt.ThreadKey)
	require.Equal(t, map[string]string{"service": "ecs-ep", "pid": "9"}, evt.Fields)
}

func TestConvertMalformedTimestamp(t *testing.T) {
	m := types.RawMatch{Kind: types.KindOOM, Fields: map[string]string{"date": "Feb 30 10:00:00", "service": "x"}}
	_, err := Convert(m, specFor(t, types.KindOOM), Options{Year: 2024})
	require.Error(t, err)
	require.True(t, errors.Is(err, lib.ErrMalformedTimestamp))
}

func TestConvertRequiresYear(t *testing.T) {
	m := types.RawMatch{Kind: types.KindOOM, Fields: map[string]string{"date": "Jan  1 10:00:00"}}
	_, err := Convert(m, specFor(t, types.KindOOM), Options{})
	require.Error(t, err)
}

func TestFromMatch(t *testing.T) {
	raw := FromMatch(parser.Match{Kind: types.KindOOM, Fields: map[string]string{"date": "x"}}, 1, 5)
	require.Equal(t, types.KindOOM, raw.Kind)
	require.Equal(t, 1, raw.Source)
	require.Equal(t, 5, raw.Line)
}
