package notify2

import (
	"errors"
	"sync"
)

type fakeCall struct {
	method string
	args   []interface{}
}

// fakeServer is an in-process notification server speaking the Channel
// interface.
type fakeServer struct {
	mu       sync.Mutex
	calls    []fakeCall
	lastID   uint32
	ids      []uint32
	faults   map[string]error
	handlers map[string]SignalHandler
	closed   int

	subscribeErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		faults:   make(map[string]error),
		handlers: make(map[string]SignalHandler),
	}
}

// nextIDs makes the following Notify calls return ids, in order.
func (f *fakeServer) nextIDs(ids ...uint32) {
	f.mu.Lock()
	f.ids = append(f.ids, ids...)
	f.mu.Unlock()
}

func (f *fakeServer) fail(method string, err error) {
	f.mu.Lock()
	f.faults[method] = err
	f.mu.Unlock()
}

func (f *fakeServer) Call(method string, args ...interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{method: method, args: args})
	if err := f.faults[method]; err != nil {
		return nil, err
	}

	switch method {
	case methodNotify:
		id := args[1].(uint32)
		switch {
		case len(f.ids) > 0:
			id = f.ids[0]
			f.ids = f.ids[1:]
		case id == 0:
			f.lastID++
			id = f.lastID
		}
		return []interface{}{id}, nil
	case methodCloseNotification:
		return nil, nil
	case methodGetCapabilities:
		return []interface{}{[]string{"actions", "body", "body-markup"}}, nil
	case methodGetServerInformation:
		return []interface{}{"fake", "example.org", "1.0", "1.2"}, nil
	}
	return nil, errors.New("unknown method " + method)
}

func (f *fakeServer) Subscribe(member string, handler SignalHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[member] = handler
	return nil
}

func (f *fakeServer) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

// emit delivers a signal the way a transport would.
func (f *fakeServer) emit(member string, body ...interface{}) {
	f.mu.Lock()
	handler := f.handlers[member]
	f.mu.Unlock()
	if handler != nil {
		handler(body)
	}
}

func (f *fakeServer) actionInvoked(id uint32, key string) {
	f.emit(signalActionInvoked, id, key)
}

func (f *fakeServer) notificationClosed(id uint32, reason Reason) {
	f.emit(signalNotificationClosed, id, uint32(reason))
}

func (f *fakeServer) callsTo(method string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeServer) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for member := range f.handlers {
		out = append(out, member)
	}
	return out
}
