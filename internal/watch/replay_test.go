package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"winewarden/internal/types"
)

func TestNoopSource_IsExhausted(t *testing.T) {
	var src EventSource = NoopSource{}
	_, ok, err := src.NextEvent()
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, src.Close())
}

func TestJSONLSource_ReplaysInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := `{"timestamp":"2025-11-02T10:00:00Z","kind":"Read","target":{"kind":"Path","path":"/etc/hosts"}}

{"timestamp":"2025-11-02T10:00:01Z","kind":"Network","target":{"kind":"Network","network":{"host":"93.184.216.34","port":443,"protocol":"connect"}}}
`
	require.NoError(t, os.WriteFile(path, []byte(log), 0o644))

	src, err := OpenJSONL(path)
	require.NoError(t, err)
	defer src.Close()

	first, ok, err := src.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.AccessRead, first.Kind)
	require.Equal(t, "/etc/hosts", first.Target.Path)

	second, ok, err := src.NextEvent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.AccessNetwork, second.Kind)
	require.Equal(t, "93.184.216.34", second.Target.Network.Host)
	require.Equal(t, uint16(443), second.Target.Network.Port)

	_, ok, err = src.NextEvent()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJSONLSource_MalformedLineErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))

	src, err := OpenJSONL(path)
	require.NoError(t, err)
	defer src.Close()

	_, _, err = src.NextEvent()
	require.Error(t, err)
}

func TestOpenJSONL_MissingFile(t *testing.T) {
	_, err := OpenJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
}
