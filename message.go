package zmsg

// Request is an inbound message decoded from one frame. It is immutable
// after construction: the read loop builds it, hands it to the handler,
// and drops it when the handler returns.
type Request struct {
	msgID uint32
	data  []byte
}

// NewRequest creates a request carrying the given message id and payload.
func NewRequest(msgID uint32, data []byte) *Request {
	return &Request{msgID: msgID, data: data}
}

// MsgID returns the message id the request was framed with.
func (r *Request) MsgID() uint32 {
	return r.msgID
}

// Data returns the request payload. The slice is a read-only view;
// callers must not modify it.
func (r *Request) Data() []byte {
	return r.data
}

// Response is an outbound message produced by a handler and written back
// on the connection the request arrived on. A response need not reuse the
// request's message id, though echo-style handlers usually do.
type Response struct {
	msgID uint32
	data  []byte
}

// NewResponse creates a response carrying the given message id and payload.
func NewResponse(msgID uint32, data []byte) *Response {
	return &Response{msgID: msgID, data: data}
}

// NotFound returns the conventional reply for an unroutable message id.
// The framework never sends it on its own; register it through
// Router.OnNotFound to answer unknown ids instead of dropping them.
func NotFound() *Response {
	return NewResponse(404, []byte("Route not found"))
}

// MsgID returns the message id the response will be framed with.
func (r *Response) MsgID() uint32 {
	return r.msgID
}

// Data returns the response payload. The slice is a read-only view;
// callers must not modify it.
func (r *Response) Data() []byte {
	return r.data
}
