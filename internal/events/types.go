package events

// Event types follow the format: aggregate.action
type EventType string

// Chat events
const (
	EventChatCreated         EventType = "chat.created"
	EventChatDeleted         EventType = "chat.deleted"
	EventParticipantLeft     EventType = "chat.participant_left"
	EventParticipantRejoined EventType = "chat.participant_rejoined"
)

// Message events
const (
	EventMessageAppended EventType = "message.appended"
	EventMessagesRead    EventType = "messages.read"
)

// Aggregate type constants
const (
	AggregateTypeChat    = "chat"
	AggregateTypeMessage = "message"
)

// Redis channel prefixes
const (
	ChannelPrefixChat = "channel:chat:"
	ChannelPrefixUser = "channel:user:"
)
