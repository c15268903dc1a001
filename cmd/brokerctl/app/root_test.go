package app

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClientCreateAndShow(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "broker.db")
	base := []string{"--driver", "sqlite", "--dsn", dsn}

	out, err := run(t, append(base, "migrate")...)
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	out, err = run(t, append(base, "client", "create",
		"--name", "shop",
		"--redirect-url", "https://shop/cb",
		"--redirect-url", "https://shop/cb2",
		"--origin", "https://shop")...)
	require.NoError(t, err)

	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	id, _ := created["clientId"].(string)
	require.NotEmpty(t, id)
	assert.Len(t, created["clientSecret"], 64)
	assert.Equal(t, []any{"https://shop/cb", "https://shop/cb2"}, created["redirectUrls"])

	out, err = run(t, append(base, "client", "show", id)...)
	require.NoError(t, err)

	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "shop", shown["name"])
	assert.NotContains(t, shown, "clientSecret")
	assert.NotContains(t, out, created["clientSecret"])
}

func TestClientShowUnknown(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "broker.db")
	_, err := run(t, "--driver", "sqlite", "--dsn", dsn, "client", "show", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no client")
}

func TestClientCreateRequiresRedirect(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "broker.db")
	_, err := run(t, "--driver", "sqlite", "--dsn", dsn, "client", "create", "--name", "shop")
	require.Error(t, err)
}

func TestMemoryDriverRejected(t *testing.T) {
	_, err := run(t, "--driver", "memory", "migrate")
	require.Error(t, err)
}
