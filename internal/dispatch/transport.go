package dispatch

import "context"

type Button struct {
	ID   string
	Text string
}

type ListRow struct {
	ID    string
	Title string
}

type ListSection struct {
	Title string
	Rows  []ListRow
}

type List struct {
	Title       string
	Description string
	ActionText  string
	Sections    []ListSection
}

// Group is a group chat known to the session.
type Group struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Members int    `json:"members"`
}

// Transport is the session capability the engine drives. Every method is
// one call into the session; implementations must not retry.
type Transport interface {
	SendText(ctx context.Context, to ChatID, body string) error
	SendPoll(ctx context.Context, to ChatID, question string, options []string) error
	SendButtons(ctx context.Context, to ChatID, body string, buttons []Button, title, footer string) error
	SendList(ctx context.Context, to ChatID, body string, list List) error
	ListGroups(ctx context.Context) ([]Group, error)
	// Open brings the session connection up if it dropped.
	Open(ctx context.Context) error
}

// Readiness is the gate precondition.
type Readiness interface {
	IsReady() bool
}
