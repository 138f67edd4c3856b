package zmsg

import "sync"

// Handler processes one request and returns the response to write back
// on the same connection. Handlers are invoked from many connection
// goroutines concurrently; any shared state inside a handler is the
// handler's own responsibility to synchronize. Returning nil means the
// request is consumed without a reply and the connection stays healthy.
type Handler func(*Request) *Response

// Router maps message ids to handlers. Every inbound frame on every
// connection performs a lookup, while registrations are rare, so the
// registry is guarded by a read-write lock: lookups share a read lock
// and never block each other.
type Router struct {
	mu       sync.RWMutex
	routes   map[uint32]Handler
	notFound Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		routes: make(map[uint32]Handler),
	}
}

// AddRoute registers the handler for a message id, replacing any
// previous registration (last write wins). It is safe to call at any
// time, including while the server is running; connections observe the
// new handler on their next dispatch.
func (r *Router) AddRoute(msgID uint32, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[msgID] = handler
}

// OnNotFound registers a fallback handler invoked for message ids with
// no route. Without one, unroutable frames are dropped silently. A
// typical fallback returns NotFound().
func (r *Router) OnNotFound(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notFound = handler
}

// Dispatch resolves the handler for the request's message id and
// invokes it. The second return value reports whether any handler ran;
// when it is false the frame has no route and the caller should drop it.
// An absent route is a routing outcome, not a transport error.
func (r *Router) Dispatch(req *Request) (*Response, bool) {
	r.mu.RLock()
	handler, ok := r.routes[req.MsgID()]
	if !ok {
		handler = r.notFound
	}
	r.mu.RUnlock()

	if handler == nil {
		return nil, false
	}

	return handler(req), true
}
