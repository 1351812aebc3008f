package notify2

import (
	"errors"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-multierror"
)

const (
	dbusServiceName            = "org.freedesktop.Notifications"  // well-known bus name
	dbusObjectPath             = "/org/freedesktop/Notifications" // the DBUS object path
	dbusNotificationsInterface = "org.freedesktop.Notifications"  // DBUS Interface

	methodNotify               = "Notify"
	methodCloseNotification    = "CloseNotification"
	methodGetCapabilities      = "GetCapabilities"
	methodGetServerInformation = "GetServerInformation"

	signalActionInvoked      = "ActionInvoked"
	signalNotificationClosed = "NotificationClosed"

	channelBufferSize = 10
)

var errChannelClosed = errors.New("notify2: channel is closed")

// SignalHandler receives the body of a signal emitted by the notification
// service.
type SignalHandler func(body []interface{})

// Channel is the RPC connection to the notification service.
//
// Call invokes a method of the org.freedesktop.Notifications interface by its
// short name (e.g. "Notify") and returns the reply body. Subscribe registers
// a handler for a signal of the same interface, again by short name. Close
// releases the channel, including its subscriptions.
type Channel interface {
	Call(method string, args ...interface{}) ([]interface{}, error)
	Subscribe(member string, handler SignalHandler) error
	Close() error
}

// busChannel implements Channel on top of a godbus connection.
type busChannel struct {
	conn  *dbus.Conn
	obj   dbus.BusObject
	owned bool

	mu       sync.Mutex
	handlers map[string]SignalHandler
	signal   chan *dbus.Signal
	done     chan struct{}
	closed   bool
}

func dialSessionBus() (Channel, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return newBusChannel(conn, true), nil
}

func dialAddress(address string) func() (Channel, error) {
	return func() (Channel, error) {
		conn, err := dbus.Connect(address)
		if err != nil {
			return nil, err
		}
		return newBusChannel(conn, true), nil
	}
}

// newBusChannel wraps conn. An owned connection is closed together with the
// channel.
func newBusChannel(conn *dbus.Conn, owned bool) *busChannel {
	return &busChannel{
		conn:     conn,
		obj:      conn.Object(dbusServiceName, dbusObjectPath),
		owned:    owned,
		handlers: make(map[string]SignalHandler),
		done:     make(chan struct{}),
	}
}

func (c *busChannel) Call(method string, args ...interface{}) ([]interface{}, error) {
	call := c.obj.Call(dbusNotificationsInterface+"."+method, 0, args...)
	if call.Err != nil {
		return nil, call.Err
	}
	return call.Body, nil
}

func matchSignal(member string) []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(dbusObjectPath),
		dbus.WithMatchInterface(dbusNotificationsInterface),
		dbus.WithMatchMember(member),
	}
}

func (c *busChannel) Subscribe(member string, handler SignalHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}

	// add a listener in dbus for signals to Notification interface.
	if err := c.conn.AddMatchSignal(matchSignal(member)...); err != nil {
		return err
	}
	c.handlers[member] = handler

	if c.signal == nil {
		c.signal = make(chan *dbus.Signal, channelBufferSize)
		c.conn.Signal(c.signal)
		go c.eventLoop(c.signal)
	}
	return nil
}

func (c *busChannel) eventLoop(signals <-chan *dbus.Signal) {
	for {
		select {
		case signal, ok := <-signals:
			if !ok {
				return
			}
			c.handleSignal(signal)
		case <-c.done:
			return
		}
	}
}

// handleSignal routes a signal to the handler subscribed for its member.
// Signals from other objects sharing the connection are ignored.
func (c *busChannel) handleSignal(signal *dbus.Signal) {
	if signal.Path != dbusObjectPath {
		return
	}
	dot := strings.LastIndexByte(signal.Name, '.')
	if dot < 0 || signal.Name[:dot] != dbusNotificationsInterface {
		return
	}

	c.mu.Lock()
	handler := c.handlers[signal.Name[dot+1:]]
	c.mu.Unlock()
	if handler != nil {
		handler(signal.Body)
	}
}

// Close removes the signal subscriptions and, for an owned connection,
// closes it.
func (c *busChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	members := make([]string, 0, len(c.handlers))
	for member := range c.handlers {
		members = append(members, member)
	}
	c.handlers = nil
	signals := c.signal
	c.mu.Unlock()

	var result *multierror.Error
	if signals != nil {
		c.conn.RemoveSignal(signals)
	}
	close(c.done)

	if !c.owned {
		for _, member := range members {
			if err := c.conn.RemoveMatchSignal(matchSignal(member)...); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}

	if err := c.conn.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
