package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
nodes:
  - name: a
    capacity: 4
  - name: b
    capacity: 2
`)
	nodes, err := Load(path)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Name)
	assert.Equal(t, 4, nodes[0].Capacity)
	assert.Equal(t, "b", nodes[1].Name)
	assert.Equal(t, 2, nodes[1].Capacity)
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
nodes:
  - name: a
    capacity: 1
  - name: a
    capacity: 2
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "duplicate node name")
}

func TestLoadRejectsNegativeCapacity(t *testing.T) {
	path := writeConfig(t, `
nodes:
  - name: a
    capacity: -1
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "negative capacity")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
