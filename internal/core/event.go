package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventHistory delivers the replay window to a newly joined client.
	EventHistory EventKind = iota
	// EventMessageAdded notifies all clients about a new chat message.
	EventMessageAdded
	// EventDisplayNameChanged notifies all clients that a participant renamed.
	EventDisplayNameChanged
	// EventTypingStarted notifies all clients that a participant is typing.
	EventTypingStarted
	// EventTypingStopped notifies all clients that a participant stopped typing.
	EventTypingStopped
	// EventAuthSucceeded confirms a token was accepted.
	EventAuthSucceeded
	// EventError notifies a single client about a rejected command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Identity Identity  // typing, rename, auth events
	Message  Message   // EventMessageAdded
	Messages []Message // EventHistory
	Error    *CoreError
	// Close asks the transport to close the connection once the event is written.
	Close bool
}
