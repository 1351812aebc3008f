/*
Package notify2 shows desktop notifications through the freedesktop
notification service (org.freedesktop.Notifications) over D-Bus.
See: https://specifications.freedesktop.org/notification-spec/latest/ and
https://github.com/godbus/dbus

Call Init once, then create and show notifications:

	if err := notify2.Init("My App"); err != nil {
		return err
	}
	n := notify2.New("Summary", "Some body text", "notification-message-im")
	if err := n.Show(); err != nil {
		return err
	}

Each notification displayed is allocated a unique ID by the server.
Calling Show again on the same Notification atomically replaces the
on-screen notification with the updated content. Close asks the server
to hide it before the expiration timeout is reached.

To receive action and closed callbacks the session needs an event loop,
given to Init with WithLoop or WithLoopName, or installed process-wide with
SetDefaultLoop. Without one, notifications can be shown and closed but no
events are delivered.
*/
package notify2
