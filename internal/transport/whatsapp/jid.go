package whatsapp

import (
	"fmt"

	"go.mau.fi/whatsmeow/types"

	"wabroker/internal/dispatch"
)

// toJID parses a chat id. The legacy direct-chat server ("c.us") is mapped
// to the one the multi-device protocol expects.
func toJID(id dispatch.ChatID) (types.JID, error) {
	jid, err := types.ParseJID(string(id))
	if err != nil {
		return types.JID{}, fmt.Errorf("invalid chat id %q: %w", id, err)
	}
	if jid.User == "" {
		return types.JID{}, fmt.Errorf("invalid chat id %q: empty user", id)
	}
	if jid.Server == types.LegacyUserServer {
		jid.Server = types.DefaultUserServer
	}
	return jid, nil
}

// fromJID renders a JID in the canonical form callers send back to us.
func fromJID(jid types.JID) dispatch.ChatID {
	if jid.Server == types.DefaultUserServer {
		jid.Server = types.LegacyUserServer
	}
	return dispatch.ChatID(jid.ToNonAD().String())
}
