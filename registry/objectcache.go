package registry

// TypeModel is the opaque handle a caller hands to wire.StreamDecoder's
// Options.TypeModel, and receives back via StreamDecoder.TypeModel(). The
// decoder itself never calls any of these methods; only a schema-aware
// layer built on top (this package, or a caller's own) interprets them to
// dispatch a sub-message's bytes to the right Go type.
type TypeModel interface {
	// ResolveFieldMessage returns the fully-qualified message name a given
	// field number of the named enclosing message decodes to, or false if
	// the field isn't a message/group field known to this model.
	ResolveFieldMessage(enclosingMessage string, fieldNumber int32) (messageName string, ok bool)
}

// ObjectCache is the object-cache collaborator: register/lookup/reset,
// opaque to the decoder, holding no graph-traversal logic of its own.
// Proto messages with cyclic or shared sub-message references (e.g. a
// schema using google.protobuf.Any-style indirection, or a caller doing its
// own object interning across a decode session) register a decoded value
// under a key and look it up again without re-decoding.
type ObjectCache struct {
	objects      map[string]interface{}
	pendingRoots int
}

// NewObjectCache returns an empty cache.
func NewObjectCache() *ObjectCache {
	return &ObjectCache{objects: make(map[string]interface{})}
}

// Register records obj under key, available to a later Lookup. A caller
// registers a root object before decoding its sub-messages via
// MarkRootPending/ResolveRoot so circular references can be satisfied by a
// later Lookup rather than infinite recursion.
func (c *ObjectCache) Register(key string, obj interface{}) {
	c.objects[key] = obj
}

// Lookup returns the object registered under key, if any.
func (c *ObjectCache) Lookup(key string) (interface{}, bool) {
	obj, ok := c.objects[key]
	return obj, ok
}

// Reset clears every registered object and pending-root count. Called
// between independent top-level decode operations sharing one cache.
func (c *ObjectCache) Reset() {
	c.objects = make(map[string]interface{})
	c.pendingRoots = 0
}

// MarkRootPending increments the trap count of root objects registered but
// not yet fully decoded — §9's "trap count of pending root-object
// registrations".
func (c *ObjectCache) MarkRootPending() {
	c.pendingRoots++
}

// ResolveRoot decrements the pending-root count once a root object's decode
// completes.
func (c *ObjectCache) ResolveRoot() {
	if c.pendingRoots > 0 {
		c.pendingRoots--
	}
}

// PendingRoots reports how many registered root objects are still being
// decoded.
func (c *ObjectCache) PendingRoots() int {
	return c.pendingRoots
}
