package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Method   string
	To       ChatID
	Body     string
	Options  []string
	Buttons  []Button
	Title    string
	Footer   string
	List     List
	Deadline bool
}

// stubTransport records every call and fails with err when set.
type stubTransport struct {
	mu     sync.Mutex
	calls  []call
	err    error
	groups []Group
}

func (s *stubTransport) record(ctx context.Context, c call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, c.Deadline = ctx.Deadline()
	s.calls = append(s.calls, c)
	return s.err
}

func (s *stubTransport) SendText(ctx context.Context, to ChatID, body string) error {
	return s.record(ctx, call{Method: "SendText", To: to, Body: body})
}

func (s *stubTransport) SendPoll(ctx context.Context, to ChatID, q string, opts []string) error {
	return s.record(ctx, call{Method: "SendPoll", To: to, Body: q, Options: opts})
}

func (s *stubTransport) SendButtons(ctx context.Context, to ChatID, body string, b []Button, title, footer string) error {
	return s.record(ctx, call{Method: "SendButtons", To: to, Body: body, Buttons: b, Title: title, Footer: footer})
}

func (s *stubTransport) SendList(ctx context.Context, to ChatID, body string, l List) error {
	return s.record(ctx, call{Method: "SendList", To: to, Body: body, List: l})
}

func (s *stubTransport) ListGroups(ctx context.Context) ([]Group, error) {
	if err := s.record(ctx, call{Method: "ListGroups"}); err != nil {
		return nil, err
	}
	return s.groups, nil
}

func (s *stubTransport) Open(ctx context.Context) error {
	return s.record(ctx, call{Method: "Open"})
}

func (s *stubTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type staticGate bool

func (g staticGate) IsReady() bool { return bool(g) }

type countingRecorder struct {
	mu  sync.Mutex
	got []string
}

func (r *countingRecorder) Dispatch(op string, outcome Outcome, result string) {
	r.mu.Lock()
	r.got = append(r.got, fmt.Sprintf("%s/%s/%s", op, outcome, result))
	r.mu.Unlock()
}

func options(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Option %d", i+1)
	}
	return out
}

func TestResolvePassesThroughCanonical(t *testing.T) {
	for _, d := range []string{
		"31612345678@c.us",
		"120363025246125486@g.us",
		"12345-67890@g.us",
		"weird @ thing",
		"@",
	} {
		assert.Equal(t, ChatID(d), Resolve(d), d)
	}
}

func TestResolveStripsNonDigits(t *testing.T) {
	cases := map[string]ChatID{
		"+31 6 87758933":    "31687758933@c.us",
		"(020) 555-0101":    "0205550101@c.us",
		"31612345678":       "31612345678@c.us",
		"Family Chat":       "@c.us",
		"":                  "@c.us",
		"tel:+1.202.555.01": "120255501@c.us",
	}
	for in, want := range cases {
		got := Resolve(in)
		assert.Equal(t, want, got, in)
		assert.True(t, strings.HasSuffix(string(got), DirectSuffix))
		assert.False(t, got.IsGroup())
	}
}

func TestSelectStrategy(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 50} {
		assert.Equal(t, OutcomePoll, SelectStrategy(true, n), "group n=%d", n)
	}
	for n := 1; n <= 3; n++ {
		assert.Equal(t, OutcomeButtons, SelectStrategy(false, n), "direct n=%d", n)
	}
	assert.Equal(t, OutcomeButtons, SelectStrategy(false, 3))
	assert.Equal(t, OutcomeList, SelectStrategy(false, 4))
	assert.Equal(t, OutcomeList, SelectStrategy(false, 50))
}

func TestDeliverPollButtons(t *testing.T) {
	tr := &stubTransport{}
	e := New(tr, staticGate(true))

	outcome, err := e.DeliverPoll(context.Background(), "31612345678", "Pizza?", []string{"Yes", "No"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeButtons, outcome)

	require.Len(t, tr.calls, 1)
	assert.Equal(t, call{
		Method:  "SendButtons",
		To:      "31612345678@c.us",
		Body:    "Pizza?",
		Buttons: []Button{{ID: "opt1", Text: "Yes"}, {ID: "opt2", Text: "No"}},
		Title:   "Poll",
		Footer:  "Reply by tapping a button",
	}, tr.calls[0])
}

func TestDeliverPollList(t *testing.T) {
	tr := &stubTransport{}
	e := New(tr, staticGate(true))

	outcome, err := e.DeliverPoll(context.Background(), "+31 6 1234", "Lunch?", options(4))
	require.NoError(t, err)
	assert.Equal(t, OutcomeList, outcome)

	require.Len(t, tr.calls, 1)
	c := tr.calls[0]
	assert.Equal(t, "SendList", c.Method)
	assert.Equal(t, ChatID("3161234@c.us"), c.To)
	assert.Equal(t, ListTitle, c.List.Title)
	assert.Equal(t, ListDescription, c.List.Description)
	assert.Equal(t, ListActionText, c.List.ActionText)
	require.Len(t, c.List.Sections, 1)
	rows := c.List.Sections[0].Rows
	require.Len(t, rows, 4)
	for i, r := range rows {
		assert.Equal(t, fmt.Sprintf("opt%d", i+1), r.ID)
		assert.Equal(t, fmt.Sprintf("Option %d", i+1), r.Title)
	}
}

func TestDeliverPollGroupAlwaysNative(t *testing.T) {
	for _, n := range []int{1, 3, 4, 50} {
		tr := &stubTransport{}
		e := New(tr, staticGate(true))
		outcome, err := e.DeliverPoll(context.Background(), "12345-67890@g.us", "Q", options(n))
		require.NoError(t, err)
		assert.Equal(t, OutcomePoll, outcome)
		require.Len(t, tr.calls, 1)
		assert.Equal(t, "SendPoll", tr.calls[0].Method)
		assert.Equal(t, options(n), tr.calls[0].Options)
	}
}

func TestNotReadyMakesNoTransportCalls(t *testing.T) {
	tr := &stubTransport{}
	rec := &countingRecorder{}
	e := New(tr, staticGate(false), WithRecorder(rec))
	ctx := context.Background()

	_, err := e.DeliverPoll(ctx, "31612345678", "Q", []string{"a"})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, e.SendText(ctx, "31612345678", "hi"), ErrNotReady)
	_, err = e.ListGroups(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, e.Open(ctx), ErrNotReady)

	assert.Equal(t, 0, tr.count())
	assert.Equal(t, []string{"poll//not_ready", "text//not_ready", "groups//not_ready", "open//not_ready"}, rec.got)
}

func TestValidation(t *testing.T) {
	tr := &stubTransport{}
	e := New(tr, staticGate(true))
	ctx := context.Background()

	err := e.SendText(ctx, "", "hi")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "contact", ve.Field)

	err = e.SendText(ctx, "3161", "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "message", ve.Field)

	_, err = e.DeliverPoll(ctx, "3161", "", []string{"a"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "question", ve.Field)

	_, err = e.DeliverPoll(ctx, "3161", "Q", nil)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "options", ve.Field)
	assert.Equal(t, 400, StatusCode(err))

	assert.Equal(t, 0, tr.count())
}

func TestValidationBeforeReadiness(t *testing.T) {
	e := New(&stubTransport{}, staticGate(false))
	err := e.SendText(context.Background(), "", "")
	assert.True(t, IsValidation(err))
}

func TestTransportErrorPropagatesVerbatimWithoutRetry(t *testing.T) {
	cause := errors.New("session invalidated: 401")
	tr := &stubTransport{err: cause}
	e := New(tr, staticGate(true))

	outcome, err := e.DeliverPoll(context.Background(), "3161", "Q", []string{"a", "b"})
	assert.Equal(t, Outcome(""), outcome)
	require.ErrorIs(t, err, cause)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpPoll, te.Op)
	assert.Equal(t, cause.Error(), err.Error())
	assert.Equal(t, 500, StatusCode(err))
	assert.Equal(t, 1, tr.count(), "no second strategy is attempted")
}

func TestSendTextIsNotDeduplicated(t *testing.T) {
	tr := &stubTransport{}
	e := New(tr, staticGate(true))
	ctx := context.Background()

	require.NoError(t, e.SendText(ctx, "+31 6 87758933", "same"))
	require.NoError(t, e.SendText(ctx, "+31 6 87758933", "same"))

	require.Len(t, tr.calls, 2)
	assert.Equal(t, tr.calls[0], tr.calls[1])
	assert.Equal(t, ChatID("31687758933@c.us"), tr.calls[0].To)
}

func TestListGroupsDefaultsMembers(t *testing.T) {
	tr := &stubTransport{groups: []Group{
		{Name: "Family", ID: "1-2@g.us", Members: 5},
		{Name: "Ghost", ID: "3-4@g.us", Members: -1},
	}}
	e := New(tr, staticGate(true))

	groups, err := e.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Name: "Family", ID: "1-2@g.us", Members: 5},
		{Name: "Ghost", ID: "3-4@g.us", Members: 0},
	}, groups)
}

func TestListGroupsEmptyIsNotNil(t *testing.T) {
	e := New(&stubTransport{}, staticGate(true))
	groups, err := e.ListGroups(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestCallTimeout(t *testing.T) {
	tr := &stubTransport{}
	require.NoError(t, New(tr, staticGate(true)).SendText(context.Background(), "1", "x"))
	require.NoError(t, New(tr, staticGate(true), WithCallTimeout(time.Second)).SendText(context.Background(), "1", "x"))

	assert.False(t, tr.calls[0].Deadline, "unbounded by default")
	assert.True(t, tr.calls[1].Deadline)
}

func TestRecorderSeesOutcome(t *testing.T) {
	rec := &countingRecorder{}
	e := New(&stubTransport{}, staticGate(true), WithRecorder(rec))
	_, err := e.DeliverPoll(context.Background(), "1", "Q", options(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"poll/list/ok"}, rec.got)
}
