package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"

	"wabroker/internal/dispatch"
)

type waMessage = waE2E.Message

func textMessage(body string) *waE2E.Message {
	return &waE2E.Message{Conversation: proto.String(body)}
}

func buttonsMessage(body string, buttons []dispatch.Button, title, footer string) *waE2E.Message {
	bs := make([]*waE2E.ButtonsMessage_Button, len(buttons))
	for i, b := range buttons {
		bs[i] = &waE2E.ButtonsMessage_Button{
			ButtonID:   proto.String(b.ID),
			ButtonText: &waE2E.ButtonsMessage_Button_ButtonText{DisplayText: proto.String(b.Text)},
			Type:       waE2E.ButtonsMessage_Button_RESPONSE.Enum(),
		}
	}
	return &waE2E.Message{
		ButtonsMessage: &waE2E.ButtonsMessage{
			ContentText: proto.String(body),
			FooterText:  proto.String(footer),
			HeaderType:  waE2E.ButtonsMessage_TEXT.Enum(),
			Header:      &waE2E.ButtonsMessage_Text{Text: title},
			Buttons:     bs,
		},
	}
}

// listMessage puts the question in the list body; the fixed prompt goes in
// the footer.
func listMessage(body string, list dispatch.List) *waE2E.Message {
	sections := make([]*waE2E.ListMessage_Section, len(list.Sections))
	for i, s := range list.Sections {
		rows := make([]*waE2E.ListMessage_Row, len(s.Rows))
		for j, r := range s.Rows {
			rows[j] = &waE2E.ListMessage_Row{
				RowID: proto.String(r.ID),
				Title: proto.String(r.Title),
			}
		}
		sections[i] = &waE2E.ListMessage_Section{Title: proto.String(s.Title), Rows: rows}
	}
	return &waE2E.Message{
		ListMessage: &waE2E.ListMessage{
			Title:       proto.String(list.Title),
			Description: proto.String(body),
			FooterText:  proto.String(list.Description),
			ButtonText:  proto.String(list.ActionText),
			ListType:    waE2E.ListMessage_SINGLE_SELECT.Enum(),
			Sections:    sections,
		},
	}
}
