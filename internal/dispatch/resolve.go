package dispatch

import "strings"

// ChatID is a canonical chat identifier: "<digits>@c.us" for direct chats,
// "<digits>-<digits>@g.us" (or "<digits>@g.us") for groups.
type ChatID string

const (
	DirectSuffix = "@c.us"
	GroupSuffix  = "@g.us"
)

func (c ChatID) String() string { return string(c) }

// IsGroup reports whether the id addresses a group chat.
func (c ChatID) IsGroup() bool { return strings.HasSuffix(string(c), GroupSuffix) }

// Resolve turns a recipient descriptor into a chat id.
//
// A descriptor containing "@" is already canonical and passes through.
// Anything else is treated as a phone number: every non-digit is dropped and
// the direct-chat suffix appended. Plausibility is left to the transport, so
// "" resolves to "@c.us".
func Resolve(descriptor string) ChatID {
	if strings.Contains(descriptor, "@") {
		return ChatID(descriptor)
	}
	var b strings.Builder
	b.Grow(len(descriptor) + len(DirectSuffix))
	for _, r := range descriptor {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	b.WriteString(DirectSuffix)
	return ChatID(b.String())
}
