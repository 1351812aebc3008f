package notify2

import (
	"github.com/godbus/dbus/v5"
)

// Reason for the closed notification
type Reason uint32

const (
	// ReasonExpired when a notification expired
	ReasonExpired Reason = 1

	// ReasonDismissedByUser when a notification has been dismissed by a user
	ReasonDismissedByUser Reason = 2

	// ReasonClosedByCall when a notification has been closed by a call to CloseNotification
	ReasonClosedByCall Reason = 3

	// ReasonUnknown when as notification has been closed for an unknown reason
	ReasonUnknown Reason = 4
)

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "Expired"
	case ReasonDismissedByUser:
		return "DismissedByUser"
	case ReasonClosedByCall:
		return "ClosedByCall"
	case ReasonUnknown:
		return "Unknown"
	default:
		return "Other"
	}
}

// subscribe connects the two notification signals on ch to the router.
// Each decoded signal is handed to loop as one callback, tagged with the
// connection generation gen.
func (s *Session) subscribe(ch Channel, loop Loop, gen uint64) error {
	log := s.logger

	err := ch.Subscribe(signalActionInvoked, func(body []interface{}) {
		var id uint32
		var key string
		if err := dbus.Store(body, &id, &key); err != nil {
			log.Warn().Err(err).Str("signal", signalActionInvoked).Msg("malformed signal")
			return
		}
		loop.Dispatch(func() { s.onActionInvoked(gen, id, key) })
	})
	if err != nil {
		return err
	}

	return ch.Subscribe(signalNotificationClosed, func(body []interface{}) {
		var id, reason uint32
		if err := dbus.Store(body, &id, &reason); err != nil {
			log.Warn().Err(err).Str("signal", signalNotificationClosed).Msg("malformed signal")
			return
		}
		loop.Dispatch(func() { s.onNotificationClosed(gen, id, Reason(reason)) })
	})
}

// onActionInvoked dispatches an action to the notification registered
// under id. Events for unknown ids or for a connection that is no longer
// current are dropped.
func (s *Session) onActionInvoked(gen uint64, id uint32, key string) {
	log, live := s.current(gen)
	if !live {
		return
	}
	n, ok := s.registry.lookup(id)
	if !ok {
		log.Debug().Uint32("id", id).Str("action", key).Msg("action for unregistered notification")
		return
	}
	n.dispatchAction(key)
}

// onNotificationClosed runs the closed callback of the notification
// registered under id, then forgets the id.
func (s *Session) onNotificationClosed(gen uint64, id uint32, reason Reason) {
	log, live := s.current(gen)
	if !live {
		return
	}
	n, ok := s.registry.lookup(id)
	if !ok {
		log.Debug().Uint32("id", id).Stringer("reason", reason).Msg("close of unregistered notification")
		return
	}
	n.dispatchClosed(reason)
	s.registry.remove(id)
}
