package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/dispatch/pkg/api"
	"github.com/cuemby/dispatch/pkg/scheduler"
	"github.com/cuemby/dispatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSpawner struct{}

func (nopSpawner) Start(context.Context, string, *types.Task, string) error { return nil }
func (nopSpawner) Kill(string)                                             {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	sched := scheduler.New(nopSpawner{}, []types.Node{{Name: "a", Capacity: 2}}, nil)
	sched.Start()
	t.Cleanup(sched.Stop)
	srv := api.NewServer(sched, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientSubmitAndListNodes(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL)

	require.NoError(t, c.SubmitTask("j", 0, "map", "a", nil, nil, nil))

	nodes, err := c.ListNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 1, nodes[0].Load)
}

func TestClientBlacklistWhitelist(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL)

	require.NoError(t, c.Blacklist("a"))
	info, _, err := c.GetNode("a")
	require.NoError(t, err)
	assert.True(t, info.Blacklisted)

	require.NoError(t, c.Whitelist("a"))
	info, _, err = c.GetNode("a")
	require.NoError(t, err)
	assert.False(t, info.Blacklisted)
}

func TestClientUnknownNodeErrors(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL)

	_, _, err := c.GetNode("ghost")
	assert.Error(t, err)
}
