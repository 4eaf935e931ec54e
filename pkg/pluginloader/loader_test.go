package pluginloader

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/pshmarlow/scripts-demos/pkg/pluginsdk"
	appTypes "github.com/pshmarlow/scripts-demos/types"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	name      string
	initErr   error
	procErr   error
	processed int
	finalized bool
}

func (s *stubPlugin) Name() string                  { return s.name }
func (s *stubPlugin) Init(pluginsdk.Context) error  { return s.initErr }
func (s *stubPlugin) Process(appTypes.Report) error { s.processed++; return s.procErr }
func (s *stubPlugin) Finalize() error               { s.finalized = true; return nil }

func TestLoaderLifecycle(t *testing.T) {
	ok := &stubPlugin{name: "test-ok"}
	failing := &stubPlugin{name: "test-failing", procErr: errors.New("boom")}
	Register(ok.name, func() pluginsdk.Plugin { return ok })
	Register(failing.name, func() pluginsdk.Plugin { return failing })
	require.Contains(t, Registered(), "test-ok")

	pctx := pluginsdk.Context{Ctx: context.Background(), Logger: zap.NewNop()}
	l, err := New(pctx, []pluginsdk.PluginConfig{
		{Name: "test-ok", Enabled: true},
		{Name: "test-failing", Enabled: true},
		{Name: "test-disabled", Enabled: false},
		{Name: "test-unknown", Enabled: true},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"test-ok", "test-failing"}, l.Plugins())

	err = l.Dispatch(appTypes.Report{})
	require.ErrorContains(t, err, "test-failing")
	require.Equal(t, 1, ok.processed)
	require.Equal(t, 1, failing.processed)

	require.NoError(t, l.Finalize())
	require.True(t, ok.finalized)
	require.True(t, failing.finalized)
}

func TestLoaderInitError(t *testing.T) {
	Register("test-init", func() pluginsdk.Plugin { return &stubPlugin{name: "test-init", initErr: errors.New("no creds")} })
	_, err := New(pluginsdk.Context{}, []pluginsdk.PluginConfig{{Name: "test-init", Enabled: true}})
	require.Error(t, err)
}
