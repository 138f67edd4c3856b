package zmsg

import (
	"sync"
	"testing"
)

func TestNewRouter(t *testing.T) {
	router := NewRouter()

	resp, ok := router.Dispatch(NewRequest(1, nil))
	if ok {
		t.Error("Dispatch on empty router reported a handler")
	}
	if resp != nil {
		t.Errorf("Dispatch on empty router returned %v, want nil", resp)
	}
}

func TestRouter_AddRoute(t *testing.T) {
	router := NewRouter()
	router.AddRoute(1, func(req *Request) *Response {
		return NewResponse(req.MsgID(), append([]byte("got: "), req.Data()...))
	})

	resp, ok := router.Dispatch(NewRequest(1, []byte("payload")))
	if !ok {
		t.Fatal("Dispatch reported no handler")
	}
	if resp == nil {
		t.Fatal("Dispatch returned nil response")
	}
	if resp.MsgID() != 1 {
		t.Errorf("response msg id = %d, want 1", resp.MsgID())
	}
	if string(resp.Data()) != "got: payload" {
		t.Errorf("response data = %q, want %q", resp.Data(), "got: payload")
	}
}

func TestRouter_AddRoute_LastWriteWins(t *testing.T) {
	router := NewRouter()
	router.AddRoute(1, func(req *Request) *Response {
		return NewResponse(1, []byte("first"))
	})
	router.AddRoute(1, func(req *Request) *Response {
		return NewResponse(1, []byte("second"))
	})

	resp, ok := router.Dispatch(NewRequest(1, nil))
	if !ok || resp == nil {
		t.Fatal("Dispatch failed")
	}
	if string(resp.Data()) != "second" {
		t.Errorf("response data = %q, want %q", resp.Data(), "second")
	}
}

func TestRouter_Dispatch_NilResponse(t *testing.T) {
	router := NewRouter()
	router.AddRoute(1, func(req *Request) *Response {
		return nil
	})

	// A handler returning nil consumed the request without a reply.
	resp, ok := router.Dispatch(NewRequest(1, nil))
	if !ok {
		t.Error("Dispatch reported no handler")
	}
	if resp != nil {
		t.Errorf("Dispatch returned %v, want nil", resp)
	}
}

func TestRouter_OnNotFound(t *testing.T) {
	router := NewRouter()
	router.AddRoute(1, func(req *Request) *Response {
		return NewResponse(1, nil)
	})

	var gotMsgID uint32
	router.OnNotFound(func(req *Request) *Response {
		gotMsgID = req.MsgID()
		return NotFound()
	})

	resp, ok := router.Dispatch(NewRequest(99, nil))
	if !ok {
		t.Fatal("Dispatch did not invoke the fallback handler")
	}
	if gotMsgID != 99 {
		t.Errorf("fallback saw msg id %d, want 99", gotMsgID)
	}
	if resp.MsgID() != 404 {
		t.Errorf("response msg id = %d, want 404", resp.MsgID())
	}

	// Registered routes still take precedence over the fallback.
	resp, ok = router.Dispatch(NewRequest(1, nil))
	if !ok || resp.MsgID() != 1 {
		t.Error("registered route was shadowed by the fallback")
	}
}

func TestRouter_ConcurrentAccess(t *testing.T) {
	router := NewRouter()
	router.AddRoute(1, func(req *Request) *Response {
		return NewResponse(1, req.Data())
	})

	// Registrations racing with dispatches must be safe.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)

		go func(id uint32) {
			defer wg.Done()
			router.AddRoute(id, func(req *Request) *Response {
				return NewResponse(id, nil)
			})
		}(uint32(i + 100))

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				router.Dispatch(NewRequest(1, nil))
			}
		}()
	}
	wg.Wait()

	if _, ok := router.Dispatch(NewRequest(109, nil)); !ok {
		t.Error("route registered during concurrent access is missing")
	}
}
