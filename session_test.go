package notify2

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func initSession(t *testing.T, opts ...Option) (*Session, *fakeServer) {
	t.Helper()
	srv := newFakeServer()
	s := NewSession()
	require.NoError(t, s.Init("test-app", append([]Option{WithChannel(srv)}, opts...)...))
	t.Cleanup(s.Uninit)
	return s, srv
}

func TestNotInitialized(t *testing.T) {
	s := NewSession()
	require.False(t, s.IsInitted())
	require.Equal(t, StateUninitialized, s.State())

	_, err := s.ServerCaps()
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.ServerInfo()
	require.ErrorIs(t, err, ErrNotInitialized)

	n := s.New("summary", "body", "")
	require.ErrorIs(t, n.Show(), ErrNotInitialized)
	require.Zero(t, n.ID())
	// never shown, so there is nothing to close
	require.NoError(t, n.Close())
}

func TestInitWithoutLoop(t *testing.T) {
	s, srv := initSession(t)
	require.True(t, s.IsInitted())
	require.False(t, s.EventsEnabled())
	require.Equal(t, StateReady, s.State())
	require.Equal(t, "test-app", s.AppName())
	require.Empty(t, srv.subscribed())
}

func TestInitWithLoop(t *testing.T) {
	s, srv := initSession(t, WithLoop(NewManualLoop()))
	require.True(t, s.EventsEnabled())
	require.Equal(t, StateReadyWithEvents, s.State())
	require.ElementsMatch(t, []string{signalActionInvoked, signalNotificationClosed}, srv.subscribed())
}

func TestInitWithDefaultLoop(t *testing.T) {
	SetDefaultLoop(NewManualLoop())
	t.Cleanup(func() { SetDefaultLoop(nil) })

	s, _ := initSession(t)
	require.True(t, s.EventsEnabled())
}

func TestInitWithLoopName(t *testing.T) {
	s, _ := initSession(t, WithLoopName(LoopSerial))
	require.True(t, s.EventsEnabled())
	require.NotNil(t, s.ownedLoop)

	s.Uninit()
	require.Nil(t, s.ownedLoop)

	require.NoError(t, s.Init("test-app", WithChannel(newFakeServer()), WithLoopName(LoopInline)))
	require.True(t, s.EventsEnabled())
	require.Nil(t, s.ownedLoop)
}

func TestInitUnknownLoopName(t *testing.T) {
	s := NewSession()
	err := s.Init("test-app", WithChannel(newFakeServer()), WithLoopName("glib"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.False(t, s.IsInitted())
}

func TestInitConnectionError(t *testing.T) {
	dialErr := errors.New("no bus")
	s := NewSession()
	err := s.Init("test-app", WithDialer(func() (Channel, error) { return nil, dialErr }))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "connect", connErr.Op)
	require.ErrorIs(t, err, dialErr)
	require.False(t, s.IsInitted())
}

func TestInitSubscribeError(t *testing.T) {
	srv := newFakeServer()
	srv.subscribeErr = errors.New("match rejected")

	s := NewSession()
	err := s.Init("test-app", WithChannel(srv), WithLoopName(LoopInline))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "subscribe", connErr.Op)
	require.False(t, s.IsInitted())
	require.Equal(t, 1, srv.closed)
}

func TestUninit(t *testing.T) {
	s, srv := initSession(t, WithLoopName(LoopInline))
	require.NoError(t, s.New("summary", "", "").Show())
	require.Equal(t, 1, s.registry.len())

	s.Uninit()
	require.False(t, s.IsInitted())
	require.False(t, s.EventsEnabled())
	require.Equal(t, 1, srv.closed)
	require.Zero(t, s.registry.len())

	// idempotent
	s.Uninit()
	require.Equal(t, 1, srv.closed)

	_, err := s.ServerCaps()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestReinitReplacesChannel(t *testing.T) {
	s, first := initSession(t, WithLoopName(LoopInline))
	n := s.New("summary", "", "")
	require.NoError(t, n.Show())

	second := newFakeServer()
	require.NoError(t, s.Init("other-app", WithChannel(second)))
	require.Equal(t, 1, first.closed)
	require.Equal(t, "other-app", s.AppName())
	require.False(t, s.EventsEnabled())

	// the existing notification now talks to the new channel
	require.NoError(t, n.Show())
	require.Len(t, second.callsTo(methodNotify), 1)
	require.Equal(t, "other-app", second.callsTo(methodNotify)[0].args[0])
}

func TestStaleChannelEventsDropped(t *testing.T) {
	s, first := initSession(t, WithLoopName(LoopInline))
	n := s.New("summary", "", "")
	closed := 0
	require.NoError(t, n.Connect(EventClosed, func(*Notification) { closed++ }))
	require.NoError(t, n.Show())

	second := newFakeServer()
	require.NoError(t, s.Init("test-app", WithChannel(second), WithLoopName(LoopInline)))
	require.NoError(t, n.Show())

	first.notificationClosed(n.ID(), ReasonExpired)
	require.Zero(t, closed)

	second.notificationClosed(n.ID(), ReasonExpired)
	require.Equal(t, 1, closed)
}

func TestServerCaps(t *testing.T) {
	s, _ := initSession(t)
	caps, err := s.ServerCaps()
	require.NoError(t, err)
	require.Equal(t, []string{"actions", "body", "body-markup"}, caps)
}

func TestServerInfo(t *testing.T) {
	s, _ := initSession(t)
	info, err := s.ServerInfo()
	require.NoError(t, err)
	require.Equal(t, ServerInformation{
		Name:        "fake",
		Vendor:      "example.org",
		Version:     "1.0",
		SpecVersion: "1.2",
	}, info)
}

func TestServerInfoTransportError(t *testing.T) {
	s, srv := initSession(t)
	srv.fail(methodGetServerInformation, errors.New("connection reset"))

	_, err := s.ServerInfo()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, methodGetServerInformation, connErr.Op)
}

func TestCallErrorClassification(t *testing.T) {
	s, srv := initSession(t)
	srv.fail(methodNotify, dbus.MakeFailedError(errors.New("rejected")))
	srv.fail(methodCloseNotification, dbus.Error{Name: "org.freedesktop.DBus.Error.Failed"})

	n := s.New("summary", "", "")
	err := n.Show()
	require.ErrorIs(t, err, ErrShowFailed)
	require.NotErrorIs(t, err, ErrCloseFailed)
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	require.Equal(t, methodNotify, callErr.Method)

	n.id = 3
	err = n.Close()
	require.ErrorIs(t, err, ErrCloseFailed)
	require.NotErrorIs(t, err, ErrShowFailed)
}

func TestDefaultSession(t *testing.T) {
	srv := newFakeServer()
	require.NoError(t, Init("default-app", WithChannel(srv)))
	t.Cleanup(Uninit)

	require.Same(t, defaultSession, Default())
	require.True(t, IsInitted())
	require.Equal(t, "default-app", AppName())

	_, err := ServerCaps()
	require.NoError(t, err)
	_, err = ServerInfo()
	require.NoError(t, err)

	n := New("summary", "body", "dialog-information")
	require.NoError(t, n.Show())
	require.Equal(t, uint32(1), n.ID())

	Uninit()
	require.False(t, IsInitted())
	require.ErrorIs(t, n.Show(), ErrNotInitialized)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Uninitialized", StateUninitialized.String())
	require.Equal(t, "Ready", StateReady.String())
	require.Equal(t, "ReadyWithEvents", StateReadyWithEvents.String())
	require.Equal(t, "Other", State(9).String())
}

// valueChannel is a Channel whose dynamic type cannot be compared with ==.
type valueChannel struct {
	srv *fakeServer
	tag func()
}

func (c valueChannel) Call(method string, args ...interface{}) ([]interface{}, error) {
	return c.srv.Call(method, args...)
}

func (c valueChannel) Subscribe(member string, handler SignalHandler) error {
	return c.srv.Subscribe(member, handler)
}

func (c valueChannel) Close() error { return c.srv.Close() }

func TestUncomparableChannel(t *testing.T) {
	srv := newFakeServer()
	s := NewSession()
	require.NoError(t, s.Init("test-app", WithChannel(valueChannel{srv: srv, tag: func() {}}), WithLoopName(LoopInline)))
	t.Cleanup(s.Uninit)

	n := s.New("summary", "", "")
	closed := 0
	require.NoError(t, n.Connect(EventClosed, func(*Notification) { closed++ }))
	require.NotPanics(t, func() { require.NoError(t, n.Show()) })
	require.Equal(t, 1, s.registry.len())

	require.NotPanics(t, func() { srv.notificationClosed(n.ID(), ReasonExpired) })
	require.Equal(t, 1, closed)
	require.Zero(t, s.registry.len())
}

func TestFailedReinitLeavesUninitialized(t *testing.T) {
	s, srv := initSession(t)

	err := s.Init("test-app", WithChannel(newFakeServer()), WithLoopName("glib"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.False(t, s.IsInitted())
	require.Equal(t, 1, srv.closed)

	_, err = s.ServerCaps()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitWithAddressUnreachable(t *testing.T) {
	s := NewSession()
	err := s.Init("test-app", WithAddress("unix:path=/nonexistent/notify2-test.sock"))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "connect", connErr.Op)
	require.False(t, s.IsInitted())
}
