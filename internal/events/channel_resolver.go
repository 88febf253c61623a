package events

import (
	"fmt"
)

// ChannelResolver determines which Redis channels to publish to
type ChannelResolver interface {
	ResolveChannels(event Event) []string
}

// HybridChannelResolver fans an event out to the chat channel and to the
// personal channel of every recipient.
type HybridChannelResolver struct{}

func NewHybridChannelResolver() *HybridChannelResolver {
	return &HybridChannelResolver{}
}

func (r *HybridChannelResolver) ResolveChannels(event Event) []string {
	recipients := event.Recipients()
	channels := make([]string, 0, len(recipients)+1)
	channels = append(channels, fmt.Sprintf("%s%s", ChannelPrefixChat, event.ChatID()))
	for _, userID := range recipients {
		channels = append(channels, fmt.Sprintf("%s%s", ChannelPrefixUser, userID))
	}
	return channels
}
