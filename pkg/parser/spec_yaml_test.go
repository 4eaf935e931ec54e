package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pshmarlow/scripts-demos/types"
	"github.com/stretchr/testify/require"
)

const ruleFile = `
kinds:
  - kind: DiskFull
    keywords: ["No space left"]
    discriminators: [mount]
    headers:
      - {key: time_date, header: Time/Date}
      - {header: Mount Point}
    rules:
      - pattern: '(?P<date>\w{3}\s+\d+\s+\d+:\d+:\d+).*No space left on device: (?P<mount_point>\S+)'
        required: [mount_point]
        set:
          mount: "${mount_point}"
  - kind: TxSentry
    discriminators: [service]
`

func TestLoadSpecsYAML(t *testing.T) {
	ovs, err := LoadSpecsYAML(strings.NewReader(ruleFile))
	require.NoError(t, err)
	require.Len(t, ovs, 2)

	disk := ovs[0]
	require.Equal(t, types.Kind("DiskFull"), disk.Kind)
	require.Len(t, disk.Rules, 1)
	require.Equal(t, []types.Header{
		{Key: "time_date", Header: "Time/Date"},
		{Key: "mount_point", Header: "Mount Point"},
	}, disk.Headers)

	fields, ok := disk.Rules[0].Match("Mar  9 01:02:03 host kernel: No space left on device: /store")
	require.True(t, ok)
	require.Equal(t, "/store", fields["mount"])
	require.Equal(t, "/store", fields["mount_point"])
}

func TestMergeOverridesAndAppends(t *testing.T) {
	ovs, err := LoadSpecsYAML(strings.NewReader(ruleFile))
	require.NoError(t, err)

	specs := Merge(DefaultSpecs(), ovs)
	reg, err := NewRegistry(specs...)
	require.NoError(t, err)

	kinds := reg.Kinds()
	require.Equal(t, types.Kind("DiskFull"), kinds[len(kinds)-1])

	tx, ok := reg.Spec(types.KindTxSentry)
	require.True(t, ok)
	require.Equal(t, []string{"service"}, tx.Discriminators)
	require.NotNil(t, tx.Correlation, "correlation kept from defaults")
	require.Len(t, tx.Rules, 3, "rules kept from defaults")
}

func TestLoadSpecsYAMLErrors(t *testing.T) {
	_, err := LoadSpecsYAML(strings.NewReader("kinds:\n  - rules: []\n"))
	require.Error(t, err)

	_, err = LoadSpecsYAML(strings.NewReader("kinds:\n  - kind: X\n    rules:\n      - pattern: 'no date'\n"))
	require.Error(t, err)

	_, err = LoadSpecsYAML(strings.NewReader("kinds:\n  - kind: X\n    bogus: 1\n"))
	require.Error(t, err)

	ovs, err := LoadSpecsYAML(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, ovs)
}

func TestRegistryFromFile(t *testing.T) {
	reg, err := RegistryFromFile("")
	require.NoError(t, err)
	require.Len(t, reg.Kinds(), len(types.BuiltinKinds))

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ruleFile), 0o644))
	reg, err = RegistryFromFile(path)
	require.NoError(t, err)
	require.Len(t, reg.Kinds(), len(types.BuiltinKinds)+1)

	_, err = RegistryFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
