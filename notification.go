package notify2

import (
	"math"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// Special timeout values.
const (
	// ExpiresDefault leaves the expiration time to the notification server.
	ExpiresDefault = -1
	// ExpiresNever keeps the notification until it is closed.
	ExpiresNever = 0
)

// EventClosed is the only event accepted by Notification.Connect.
const EventClosed = "closed"

// Urgency is the urgency level of a notification.
type Urgency byte

const (
	// UrgencyLow for informational notifications
	UrgencyLow Urgency = 0

	// UrgencyNormal is the usual level
	UrgencyNormal Urgency = 1

	// UrgencyCritical for notifications that should not expire on their own
	UrgencyCritical Urgency = 2
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "Low"
	case UrgencyNormal:
		return "Normal"
	case UrgencyCritical:
		return "Critical"
	default:
		return "Other"
	}
}

// ActionFunc is called when the user invokes an action added with AddAction.
type ActionFunc func(n *Notification, action string)

// ActionDataFunc is called when the user invokes an action added with
// AddActionWithData.
type ActionDataFunc func(n *Notification, action string, userData interface{})

// ClosedFunc is called when the server reports the notification closed.
type ClosedFunc func(n *Notification)

type action struct {
	label    string
	callback ActionFunc
	withData ActionDataFunc
	userData interface{}
}

// Notification is one notification and its callbacks.
//
// Every Show sends the whole notification to the server: the first
// creates it, later ones replace it in place.
type Notification struct {
	session *Session

	mu         sync.Mutex
	id         uint32
	summary    string
	body       string
	icon       string
	hints      map[string]dbus.Variant
	actionKeys []string
	actions    map[string]action
	timeout    int32
	onClosed   ClosedFunc
	reason     Reason
}

// New creates a notification on the default session.
// icon is an icon name or a file path, and may be empty.
func New(summary, body, icon string) *Notification {
	return defaultSession.New(summary, body, icon)
}

// New creates a notification on s.
func (s *Session) New(summary, body, icon string) *Notification {
	return &Notification{
		session: s,
		summary: summary,
		body:    body,
		icon:    icon,
		hints:   make(map[string]dbus.Variant),
		actions: make(map[string]action),
		timeout: ExpiresDefault,
	}
}

// ID returns the server assigned id, or 0 if the notification has never been
// shown.
func (n *Notification) ID() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

// Summary returns the summary text.
func (n *Notification) Summary() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.summary
}

// Body returns the body text.
func (n *Notification) Body() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.body
}

// Icon returns the icon name or path.
func (n *Notification) Icon() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.icon
}

// Show asks the server to show the notification, or to replace it if it was
// shown before. Implements dbus call:
//
//	UINT32 org.freedesktop.Notifications.Notify (
//	    STRING app_name,
//	    UINT32 replaces_id,
//	    STRING app_icon,
//	    STRING summary,
//	    STRING body,
//	    ARRAY  actions,
//	    DICT   hints,
//	    INT32  expire_timeout
//	);
//
// The returned id becomes the notification's ID. A method fault from the
// server matches ErrShowFailed.
func (n *Notification) Show() error {
	n.mu.Lock()
	replacesID := n.id
	icon, summary, body := n.icon, n.summary, n.body
	actions := n.actionsArrayLocked()
	hints := make(map[string]dbus.Variant, len(n.hints))
	for k, v := range n.hints {
		hints[k] = v
	}
	timeout := n.timeout
	n.mu.Unlock()

	_, err := n.session.notify(n, replacesID, icon, summary, body, actions, hints, timeout)
	return err
}

// Update replaces the summary and body, and the icon when one is given.
// Call Show again to display the change.
func (n *Notification) Update(summary, body string, icon ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summary = summary
	n.body = body
	if len(icon) > 0 {
		n.icon = icon[0]
	}
}

// Close asks the server to close the notification. It does nothing if the
// notification was never shown. The local id and registration stay until the
// server confirms with a NotificationClosed signal.
func (n *Notification) Close() error {
	id := n.ID()
	if id == 0 {
		return nil
	}
	return n.session.closeNotification(id)
}

// Release stops event delivery to n without closing it on the server.
func (n *Notification) Release() {
	if id := n.ID(); id != 0 {
		n.session.registry.removeIf(id, n)
	}
}

// SetUrgency sets the urgency level to UrgencyLow, UrgencyNormal or
// UrgencyCritical.
func (n *Notification) SetUrgency(level Urgency) error {
	if level > UrgencyCritical {
		return invalidArgument("unknown urgency level %d", level)
	}
	n.SetHintByte(HintUrgency, byte(level))
	return nil
}

// SetTimeout sets the display duration in milliseconds, or one of the
// special values ExpiresDefault or ExpiresNever.
func (n *Notification) SetTimeout(ms int) error {
	if ms < math.MinInt32 || ms > math.MaxInt32 {
		return invalidArgument("timeout %d does not fit in INT32", ms)
	}
	n.mu.Lock()
	n.timeout = int32(ms)
	n.mu.Unlock()
	return nil
}

// SetTimeoutDuration sets the display duration. A negative d leaves it to the
// server, zero never expires.
func (n *Notification) SetTimeoutDuration(d time.Duration) error {
	switch {
	case d < 0:
		return n.SetTimeout(ExpiresDefault)
	case d == 0:
		return n.SetTimeout(ExpiresNever)
	}
	ms := d.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	if ms > math.MaxInt32 {
		return invalidArgument("timeout %v does not fit in INT32 milliseconds", d)
	}
	return n.SetTimeout(int(ms))
}

// Timeout returns the timeout in milliseconds.
func (n *Notification) Timeout() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return int(n.timeout)
}

// AddAction adds an action to the notification, if the server supports it.
// key is a brief identifier, label the text displayed on the action button.
// An existing action with the same key is replaced.
func (n *Notification) AddAction(key, label string, callback ActionFunc) {
	n.setAction(key, action{label: label, callback: callback})
}

// AddActionWithData is like AddAction, and passes userData to callback.
func (n *Notification) AddActionWithData(key, label string, callback ActionDataFunc, userData interface{}) {
	n.setAction(key, action{label: label, withData: callback, userData: userData})
}

func (n *Notification) setAction(key string, a action) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.actions[key]; !ok {
		n.actionKeys = append(n.actionKeys, key)
	}
	n.actions[key] = a
}

// RemoveAction removes the action with key.
func (n *Notification) RemoveAction(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.actions[key]; !ok {
		return
	}
	delete(n.actions, key)
	for i, k := range n.actionKeys {
		if k == key {
			n.actionKeys = append(n.actionKeys[:i], n.actionKeys[i+1:]...)
			break
		}
	}
}

// ClearActions removes all actions.
func (n *Notification) ClearActions() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actionKeys = nil
	n.actions = make(map[string]action)
}

// actionsArrayLocked builds the (key, label) pairs sent over DBus, in the
// order the actions were added.
func (n *Notification) actionsArrayLocked() []string {
	arr := make([]string, 0, 2*len(n.actionKeys))
	for _, key := range n.actionKeys {
		arr = append(arr, key, n.actions[key].label)
	}
	return arr
}

// Connect sets the callback for the notification closing. The only valid
// event is EventClosed.
func (n *Notification) Connect(event string, callback ClosedFunc) error {
	if event != EventClosed {
		return invalidArgument("%q is the only valid value for event, got %q", EventClosed, event)
	}
	n.mu.Lock()
	n.onClosed = callback
	n.mu.Unlock()
	return nil
}

// CloseReason returns the reason of the last NotificationClosed signal
// received for n, or 0.
func (n *Notification) CloseReason() Reason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reason
}

// dispatchAction runs the callback for key. Keys without an action are
// ignored.
func (n *Notification) dispatchAction(key string) {
	n.mu.Lock()
	a, ok := n.actions[key]
	n.mu.Unlock()
	if !ok {
		return
	}
	switch {
	case a.withData != nil:
		a.withData(n, key, a.userData)
	case a.callback != nil:
		a.callback(n, key)
	}
}

func (n *Notification) dispatchClosed(reason Reason) {
	n.mu.Lock()
	n.reason = reason
	callback := n.onClosed
	n.mu.Unlock()
	if callback != nil {
		callback(n)
	}
}
