package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectCache_RegisterLookup(t *testing.T) {
	c := NewObjectCache()

	_, ok := c.Lookup("msg-1")
	require.False(t, ok)

	c.Register("msg-1", map[string]interface{}{"id": 7})
	got, ok := c.Lookup("msg-1")
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{"id": 7}, got)
}

func TestObjectCache_Reset(t *testing.T) {
	c := NewObjectCache()
	c.Register("a", 1)
	c.MarkRootPending()
	require.Equal(t, 1, c.PendingRoots())

	c.Reset()
	_, ok := c.Lookup("a")
	require.False(t, ok)
	require.Equal(t, 0, c.PendingRoots())
}

func TestObjectCache_PendingRootsTracking(t *testing.T) {
	c := NewObjectCache()
	c.MarkRootPending()
	c.MarkRootPending()
	require.Equal(t, 2, c.PendingRoots())

	c.ResolveRoot()
	require.Equal(t, 1, c.PendingRoots())

	c.ResolveRoot()
	c.ResolveRoot() // extra resolve past zero must not go negative
	require.Equal(t, 0, c.PendingRoots())
}

func TestObjectCache_CyclicReferenceViaRegisterBeforeComplete(t *testing.T) {
	// A root object referring to itself: register the (possibly partial)
	// root before decoding sub-messages so a later self-reference resolves
	// via Lookup instead of recursing forever.
	c := NewObjectCache()
	root := map[string]interface{}{"name": "root"}
	c.MarkRootPending()
	c.Register("root", root)

	self, ok := c.Lookup("root")
	require.True(t, ok)
	selfMap, ok := self.(map[string]interface{})
	require.True(t, ok)

	// Maps share backing storage: mutating the original is visible through
	// the looked-up reference without re-registering.
	root["name"] = "root-updated"
	require.Equal(t, "root-updated", selfMap["name"])

	c.ResolveRoot()
	require.Equal(t, 0, c.PendingRoots())
}
