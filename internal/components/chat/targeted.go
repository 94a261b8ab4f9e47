package chat

import "strings"

// Incoming is an inbound message as seen by handlers.
type Incoming struct {
	UserID   string
	UserName string

	// Channel is empty for direct messages.
	Channel string

	Text string
}

// IsDirect reports whether the message arrived as a direct message.
func (in Incoming) IsDirect() bool { return in.Channel == "" }

// BotIdentity is how the bot is addressed in channels.
type BotIdentity struct {
	ID   string
	Name string
}

// handles returns the prefixes that address the bot, longest first so
// "<@U1>:" wins over "<@U1>".
func (b BotIdentity) handles() []string {
	var out []string
	if b.ID != "" {
		out = append(out, "<@"+b.ID+">:", "<@"+b.ID+">")
	}
	if b.Name != "" {
		out = append(out, "@"+b.Name+":", "@"+b.Name, b.Name+":", b.Name)
	}
	return out
}

// TargetedText returns the part of in addressed to the bot. Direct messages
// are always addressed to the bot; channel messages only when they start with
// a mention. ok is false when the message is not for the bot.
func TargetedText(in Incoming, bot BotIdentity) (text string, ok bool) {
	text = strings.TrimSpace(in.Text)

	for _, h := range bot.handles() {
		if len(text) >= len(h) && strings.EqualFold(text[:len(h)], h) {
			return strings.TrimSpace(text[len(h):]), true
		}
	}

	if in.IsDirect() {
		return text, true
	}
	return "", false
}
