package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuthenticate presents a session token to upgrade the connection.
	CommandAuthenticate CommandKind = iota
	// CommandSendMessage appends a message to the history and broadcasts it.
	CommandSendMessage
	// CommandSetDisplayName renames the connection's identity.
	CommandSetDisplayName
	// CommandTypingStarted announces that the client started typing.
	CommandTypingStarted
	// CommandTypingStopped announces that the client stopped typing.
	CommandTypingStopped
)

func (k CommandKind) String() string {
	switch k {
	case CommandAuthenticate:
		return "authenticate"
	case CommandSendMessage:
		return "send_message"
	case CommandSetDisplayName:
		return "set_display_name"
	case CommandTypingStarted:
		return "typing_started"
	case CommandTypingStopped:
		return "typing_stopped"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind  CommandKind
	Token string // CommandAuthenticate
	Text  string // message body or new display name
}
