package notify2

import (
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Session.
type State int

const (
	// StateUninitialized: Init has not been called, or Uninit was called.
	StateUninitialized State = iota
	// StateReady: connected, without event delivery.
	StateReady
	// StateReadyWithEvents: connected, with action and closed events
	// delivered through a Loop.
	StateReadyWithEvents
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReady:
		return "Ready"
	case StateReadyWithEvents:
		return "ReadyWithEvents"
	default:
		return "Other"
	}
}

// ServerInformation is a holder for information returned by
// GetServerInformation call.
type ServerInformation struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// Session owns the connection to the notification service and routes the
// events it emits to the notifications shown through it.
//
// The zero value is not usable; create one with NewSession, or use the
// package level functions, which operate on a process-wide default session.
type Session struct {
	mu        sync.Mutex
	state     State
	channel   Channel
	appName   string
	ownedLoop *SerialLoop
	logger    zerolog.Logger
	// gen identifies the connection of each successful Init.
	gen uint64

	registry *registry
}

// NewSession creates an uninitialized Session.
func NewSession() *Session {
	return &Session{
		logger:   zerolog.Nop(),
		registry: newRegistry(),
	}
}

// Option configures Init.
type Option func(*config)

type config struct {
	loop     Loop
	loopName string
	dial     func() (Channel, error)
	logger   *zerolog.Logger
}

// WithLoop enables event delivery through l.
func WithLoop(l Loop) Option {
	return func(c *config) {
		c.loop = l
	}
}

// WithLoopName enables event delivery through one of the built-in loops,
// LoopSerial or LoopInline.
func WithLoopName(name string) Option {
	return func(c *config) {
		c.loopName = name
	}
}

// WithConn uses an existing connection. The session never closes it.
func WithConn(conn *dbus.Conn) Option {
	return func(c *config) {
		c.dial = func() (Channel, error) {
			return newBusChannel(conn, false), nil
		}
	}
}

// WithAddress connects to the bus at address instead of the session bus.
func WithAddress(address string) Option {
	return func(c *config) {
		c.dial = dialAddress(address)
	}
}

// WithChannel uses ch as the connection. The session takes ownership and
// closes it on Uninit.
func WithChannel(ch Channel) Option {
	return func(c *config) {
		c.dial = func() (Channel, error) {
			return ch, nil
		}
	}
}

// WithDialer opens the connection with dial.
func WithDialer(dial func() (Channel, error)) Option {
	return func(c *config) {
		c.dial = dial
	}
}

// WithLogger overrides the session logger, which discards everything by
// default.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = &logger
	}
}

// resolveLoop picks the loop for event delivery: an explicit loop, then a
// named one, then the process default. A nil loop disables events.
func (c *config) resolveLoop() (Loop, *SerialLoop, error) {
	if c.loop != nil {
		return c.loop, nil, nil
	}
	switch c.loopName {
	case "":
		return DefaultLoop(), nil, nil
	case LoopInline:
		return inlineLoop, nil, nil
	case LoopSerial:
		l := NewSerialLoop()
		return l, l, nil
	default:
		return nil, nil, invalidArgument("unknown loop %q", c.loopName)
	}
}

// Init connects to the notification service. Calling Init on a ready
// session replaces its connection.
//
// To get callbacks from notifications the session must be integrated with a
// loop. There are three ways to achieve this:
//   - install a process-wide loop with SetDefaultLoop before calling Init
//   - pass WithLoopName(LoopSerial) or WithLoopName(LoopInline)
//   - pass a Loop implementation with WithLoop, such as a ManualLoop
//
// If you only want to display notifications, without receiving information
// back from them, you can safely omit the loop.
func (s *Session) Init(appName string, opts ...Option) error {
	cfg := config{dial: dialSessionBus}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	if cfg.logger != nil {
		s.logger = *cfg.logger
	}

	loop, ownedLoop, err := cfg.resolveLoop()
	if err != nil {
		return err
	}

	ch, err := cfg.dial()
	if err != nil {
		if ownedLoop != nil {
			ownedLoop.Stop()
		}
		return &ConnectionError{Op: "connect", Err: err}
	}

	gen := s.gen + 1
	if loop != nil {
		if err := s.subscribe(ch, loop, gen); err != nil {
			if ownedLoop != nil {
				ownedLoop.Stop()
			}
			if cerr := ch.Close(); cerr != nil {
				s.logger.Debug().Err(cerr).Msg("closing channel after failed subscription")
			}
			return &ConnectionError{Op: "subscribe", Err: err}
		}
	}

	s.gen = gen
	s.channel = ch
	s.appName = appName
	s.ownedLoop = ownedLoop
	s.state = StateReady
	if loop != nil {
		s.state = StateReadyWithEvents
	}

	s.logger.Debug().
		Str("app", appName).
		Stringer("state", s.state).
		Msg("notification session initialized")
	return nil
}

// Uninit undoes what Init does. Registered notifications are forgotten and
// events still in flight for them are dropped.
func (s *Session) Uninit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	if s.state == StateUninitialized {
		return
	}
	if err := s.channel.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("closing notification channel")
	}
	if s.ownedLoop != nil {
		s.ownedLoop.Stop()
	}
	dropped := s.registry.reset()
	if dropped > 0 {
		s.logger.Debug().Int("dropped", dropped).Msg("forgot registered notifications")
	}
	s.channel = nil
	s.ownedLoop = nil
	s.state = StateUninitialized
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsInitted reports whether Init succeeded and Uninit has not been called
// since.
func (s *Session) IsInitted() bool {
	return s.State() != StateUninitialized
}

// EventsEnabled reports whether action and closed events are delivered.
func (s *Session) EventsEnabled() bool {
	return s.State() == StateReadyWithEvents
}

// AppName returns the application name given to the last Init.
func (s *Session) AppName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appName
}

// acquire returns the current channel, app name and connection generation,
// or ErrNotInitialized.
func (s *Session) acquire() (Channel, string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUninitialized {
		return nil, "", 0, ErrNotInitialized
	}
	return s.channel, s.appName, s.gen, nil
}

// current reports whether gen is the live connection of an event-enabled
// session, along with the session logger.
func (s *Session) current(gen uint64) (zerolog.Logger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger, s.liveLocked(gen)
}

func (s *Session) liveLocked(gen uint64) bool {
	return s.state == StateReadyWithEvents && s.gen == gen
}

// call sends method over ch and sorts failures into *CallError for server
// faults and *ConnectionError for everything else.
func call(ch Channel, method string, args ...interface{}) ([]interface{}, error) {
	body, err := ch.Call(method, args...)
	if err == nil {
		return body, nil
	}
	var fault dbus.Error
	var faultPtr *dbus.Error
	if errors.As(err, &fault) || errors.As(err, &faultPtr) {
		return nil, &CallError{Method: method, Err: err}
	}
	return nil, &ConnectionError{Op: method, Err: err}
}

// ServerCaps gets the capabilities of the notification server.
// Each string describes an optional capability implemented by the server.
func (s *Session) ServerCaps() ([]string, error) {
	ch, _, _, err := s.acquire()
	if err != nil {
		return nil, err
	}
	body, err := call(ch, methodGetCapabilities)
	if err != nil {
		return nil, err
	}
	var caps []string
	if err := dbus.Store(body, &caps); err != nil {
		return nil, &ConnectionError{Op: methodGetCapabilities, Err: err}
	}
	return caps, nil
}

// ServerInfo returns the information on the server.
//
// org.freedesktop.Notifications.GetServerInformation
//
//	GetServerInformation Return Values
//
//		Name		 Type	  Description
//		name		 STRING	  The product name of the server.
//		vendor		 STRING	  The vendor name. For example, "KDE," "GNOME," "freedesktop.org," or "Microsoft."
//		version		 STRING	  The server's version number.
//		spec_version STRING	  The specification version the server is compliant with.
func (s *Session) ServerInfo() (ServerInformation, error) {
	ch, _, _, err := s.acquire()
	if err != nil {
		return ServerInformation{}, err
	}
	body, err := call(ch, methodGetServerInformation)
	if err != nil {
		return ServerInformation{}, err
	}
	ret := ServerInformation{}
	if err := dbus.Store(body, &ret.Name, &ret.Vendor, &ret.Version, &ret.SpecVersion); err != nil {
		return ServerInformation{}, &ConnectionError{Op: methodGetServerInformation, Err: err}
	}
	return ret, nil
}

// notify sends a Notify call and records n under the returned id when
// events are enabled on the connection the call went out on.
func (s *Session) notify(n *Notification, replacesID uint32, icon, summary, body string,
	actions []string, hints map[string]dbus.Variant, timeout int32) (uint32, error) {
	ch, appName, gen, err := s.acquire()
	if err != nil {
		return 0, err
	}
	reply, err := call(ch, methodNotify,
		appName,
		replacesID,
		icon,
		summary,
		body,
		actions,
		hints,
		timeout)
	if err != nil {
		return 0, err
	}
	var id uint32
	if err := dbus.Store(reply, &id); err != nil {
		return 0, &ConnectionError{Op: methodNotify, Err: err}
	}

	n.mu.Lock()
	n.id = id
	n.mu.Unlock()

	s.mu.Lock()
	if s.liveLocked(gen) {
		s.registry.add(id, n)
	}
	s.mu.Unlock()
	return id, nil
}

func (s *Session) closeNotification(id uint32) error {
	ch, _, _, err := s.acquire()
	if err != nil {
		return err
	}
	_, err = call(ch, methodCloseNotification, id)
	return err
}

var defaultSession = NewSession()

// Default returns the process-wide session used by the package level
// functions.
func Default() *Session {
	return defaultSession
}

// Init initialises the default session. See Session.Init.
func Init(appName string, opts ...Option) error {
	return defaultSession.Init(appName, opts...)
}

// Uninit resets the default session. See Session.Uninit.
func Uninit() {
	defaultSession.Uninit()
}

// IsInitted reports whether the default session is initialized.
func IsInitted() bool {
	return defaultSession.IsInitted()
}

// AppName returns the application name of the default session.
func AppName() string {
	return defaultSession.AppName()
}

// ServerCaps gets the capabilities of the server on the default session.
func ServerCaps() ([]string, error) {
	return defaultSession.ServerCaps()
}

// ServerInfo gets the server information on the default session.
func ServerInfo() (ServerInformation, error) {
	return defaultSession.ServerInfo()
}
