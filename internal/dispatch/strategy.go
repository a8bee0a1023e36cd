package dispatch

import "strconv"

// Outcome names the mechanism a poll was delivered with.
type Outcome string

const (
	OutcomePoll    Outcome = "poll"
	OutcomeButtons Outcome = "buttons"
	OutcomeList    Outcome = "list"
)

// MaxButtons is the most inline buttons a direct chat renders.
const MaxButtons = 3

// Fixed presentation texts for the direct-chat fallbacks.
const (
	ButtonsTitle  = "Poll"
	ButtonsFooter = "Reply by tapping a button"

	ListTitle        = "Poll"
	ListDescription  = "Choose one of the options below"
	ListActionText   = "View options"
	ListSectionTitle = "Options"
)

// SelectStrategy picks the delivery mechanism. Groups always get a native
// poll; direct chats get buttons up to MaxButtons options and a list above.
func SelectStrategy(isGroup bool, optionCount int) Outcome {
	switch {
	case isGroup:
		return OutcomePoll
	case optionCount <= MaxButtons:
		return OutcomeButtons
	default:
		return OutcomeList
	}
}

// OptionID is the stable id of the option at zero-based index i.
func OptionID(i int) string { return "opt" + strconv.Itoa(i+1) }

// BuildButtons maps options to buttons in order.
func BuildButtons(options []string) []Button {
	out := make([]Button, len(options))
	for i, o := range options {
		out[i] = Button{ID: OptionID(i), Text: o}
	}
	return out
}

// BuildList maps options to rows of a single section, in order.
func BuildList(options []string) List {
	rows := make([]ListRow, len(options))
	for i, o := range options {
		rows[i] = ListRow{ID: OptionID(i), Title: o}
	}
	return List{
		Title:       ListTitle,
		Description: ListDescription,
		ActionText:  ListActionText,
		Sections:    []ListSection{{Title: ListSectionTitle, Rows: rows}},
	}
}
