package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/hikari-ai/chat-assistant/internal/model"
	"github.com/hikari-ai/chat-assistant/internal/store"
	"github.com/hikari-ai/chat-assistant/pkg/logger"
)

type fakeCompleter struct {
	reply string
	err   error
	calls [][]model.Turn
}

func (f *fakeCompleter) Complete(ctx context.Context, turns []model.Turn) (string, error) {
	f.calls = append(f.calls, turns)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// blockingCompleter parks in Complete until released, to exercise the
// busy flag from a second goroutine.
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, turns []model.Turn) (string, error) {
	close(b.started)
	<-b.release
	return "done", nil
}

func newStore(c store.Completer) *store.Store {
	return store.New(c, nil, logger.NewNop())
}

func TestNewChat(t *testing.T) {
	s := newStore(&fakeCompleter{})

	h := s.NewChat()

	histories := s.Histories()
	gt.V(t, len(histories)).Equal(1)
	gt.V(t, histories[0].ID).Equal(h.ID)
	gt.V(t, histories[0].Title).Equal(store.PlaceholderTitle)
	gt.V(t, len(histories[0].Messages)).Equal(0)
	gt.V(t, s.Current()).Equal(h.ID)
	gt.V(t, len(s.Messages())).Equal(0)
	gt.True(t, !h.UpdatedAt.Before(h.CreatedAt))
}

func TestAppendExchangeCreatesHistory(t *testing.T) {
	completer := &fakeCompleter{reply: "hello to you"}
	s := newStore(completer)

	reply, err := s.AppendExchange(context.Background(), "hi there")
	gt.NoError(t, err)
	gt.V(t, reply.Role).Equal(model.RoleAssistant)
	gt.V(t, reply.Content).Equal("hello to you")

	messages := s.Messages()
	gt.V(t, len(messages)).Equal(2)
	gt.V(t, messages[0].Role).Equal(model.RoleUser)
	gt.V(t, messages[0].Content).Equal("hi there")
	gt.V(t, messages[1].Role).Equal(model.RoleAssistant)

	histories := s.Histories()
	gt.V(t, len(histories)).Equal(1)
	gt.V(t, histories[0].Title).Equal("hi there")
	gt.V(t, len(histories[0].Messages)).Equal(2)
	gt.V(t, s.Current()).Equal(histories[0].ID)
	gt.True(t, !histories[0].UpdatedAt.Before(histories[0].CreatedAt))

	// The completer saw the user's turn with timestamps stripped.
	gt.V(t, len(completer.calls)).Equal(1)
	gt.V(t, completer.calls[0]).Equal([]model.Turn{{Role: model.RoleUser, Content: "hi there"}})
}

func TestAppendExchangeIntoActiveHistory(t *testing.T) {
	completer := &fakeCompleter{reply: "reply"}
	s := newStore(completer)

	created := s.NewChat()

	_, err := s.AppendExchange(context.Background(), "first question")
	gt.NoError(t, err)

	histories := s.Histories()
	gt.V(t, len(histories)).Equal(1)
	gt.V(t, histories[0].ID).Equal(created.ID).Describe("no second history is created")
	gt.V(t, histories[0].Title).Equal("first question").Describe("placeholder title is replaced")
	firstUpdate := histories[0].UpdatedAt

	_, err = s.AppendExchange(context.Background(), "second question")
	gt.NoError(t, err)

	histories = s.Histories()
	gt.V(t, len(histories[0].Messages)).Equal(4)
	gt.V(t, len(s.Messages())).Equal(4)
	gt.V(t, histories[0].Title).Equal("first question").Describe("title is not recomputed")
	gt.True(t, !histories[0].UpdatedAt.Before(firstUpdate)).Describe("updatedAt never decreases")
}

func TestAppendExchangeRejectsEmptyInput(t *testing.T) {
	s := newStore(&fakeCompleter{reply: "x"})

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := s.AppendExchange(context.Background(), input)
		gt.True(t, errors.Is(err, store.ErrEmptyMessage))
	}

	gt.V(t, len(s.Histories())).Equal(0)
	gt.V(t, len(s.Messages())).Equal(0)
}

func TestAppendExchangeRejectsWhileBusy(t *testing.T) {
	completer := &blockingCompleter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newStore(completer)

	done := make(chan error, 1)
	go func() {
		_, err := s.AppendExchange(context.Background(), "slow question")
		done <- err
	}()

	<-completer.started
	_, err := s.AppendExchange(context.Background(), "impatient question")
	gt.True(t, errors.Is(err, store.ErrBusy))

	close(completer.release)
	gt.NoError(t, <-done)

	// Only the first exchange landed.
	gt.V(t, len(s.Messages())).Equal(2)
}

func TestAppendExchangeFailureLeavesHistoriesUntouched(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	s := newStore(completer)

	_, err := s.AppendExchange(context.Background(), "kept question")
	gt.NoError(t, err)
	before := s.Histories()

	completer.err = goerr.New("upstream exploded")
	_, err = s.AppendExchange(context.Background(), "doomed question")
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("exchange failed")

	after := s.Histories()
	gt.V(t, after).Equal(before).Describe("failed exchange persists nothing")

	// Lossy recovery: the typed turn stays visible in the mirror only.
	messages := s.Messages()
	gt.V(t, len(messages)).Equal(3)
	gt.V(t, messages[2].Content).Equal("doomed question")

	// The store is not stuck busy after a failure.
	completer.err = nil
	_, err = s.AppendExchange(context.Background(), "follow-up")
	gt.NoError(t, err)
}

func TestSelect(t *testing.T) {
	completer := &fakeCompleter{reply: "a"}
	s := newStore(completer)

	_, err := s.AppendExchange(context.Background(), "first chat")
	gt.NoError(t, err)
	first := s.Current()

	s.NewChat()
	_, err = s.AppendExchange(context.Background(), "second chat")
	gt.NoError(t, err)

	s.Select(first)
	gt.V(t, s.Current()).Equal(first)
	gt.V(t, len(s.Messages())).Equal(2)
	gt.V(t, s.Messages()[0].Content).Equal("first chat")

	// Unknown ids are silently ignored.
	s.Select("no-such-id")
	gt.V(t, s.Current()).Equal(first)
	gt.V(t, len(s.Messages())).Equal(2)
}

func TestDeleteActiveHistory(t *testing.T) {
	s := newStore(&fakeCompleter{reply: "a"})

	_, err := s.AppendExchange(context.Background(), "to be deleted")
	gt.NoError(t, err)
	id := s.Current()

	s.Delete(id)

	gt.V(t, len(s.Histories())).Equal(0)
	gt.V(t, s.Current()).Equal("")
	gt.V(t, len(s.Messages())).Equal(0)
}

func TestDeleteNonActiveHistory(t *testing.T) {
	s := newStore(&fakeCompleter{reply: "a"})

	_, err := s.AppendExchange(context.Background(), "older chat")
	gt.NoError(t, err)
	older := s.Current()

	s.NewChat()
	_, err = s.AppendExchange(context.Background(), "active chat")
	gt.NoError(t, err)
	active := s.Current()

	s.Delete(older)

	gt.V(t, len(s.Histories())).Equal(1)
	gt.V(t, s.Current()).Equal(active)
	gt.V(t, len(s.Messages())).Equal(2)
	gt.V(t, s.Messages()[0].Content).Equal("active chat")

	// Deleting an unknown id is a no-op.
	s.Delete("no-such-id")
	gt.V(t, len(s.Histories())).Equal(1)
}

func TestUpdateTitle(t *testing.T) {
	s := newStore(&fakeCompleter{reply: "a"})

	_, err := s.AppendExchange(context.Background(), "original")
	gt.NoError(t, err)
	id := s.Current()
	before := s.Histories()[0].UpdatedAt

	s.UpdateTitle(id, "renamed chat")

	h := s.Histories()[0]
	gt.V(t, h.Title).Equal("renamed chat")
	gt.True(t, !h.UpdatedAt.Before(before))

	long := strings.Repeat("x", 40)
	s.UpdateTitle(id, long)
	gt.V(t, s.Histories()[0].Title).Equal(strings.Repeat("x", 30) + "...")
}

func TestNotify(t *testing.T) {
	s := newStore(&fakeCompleter{reply: "a"})

	var fired int
	s.Notify(func() { fired++ })

	s.NewChat()
	gt.Number(t, fired).GreaterOrEqual(1)

	afterNew := fired
	_, err := s.AppendExchange(context.Background(), "hello")
	gt.NoError(t, err)
	gt.Number(t, fired).GreaterOrEqual(afterNew + 1)
}

func TestDeriveTitle(t *testing.T) {
	gt.V(t, store.DeriveTitle("Hello")).Equal("Hello")

	exact := strings.Repeat("a", 30)
	gt.V(t, store.DeriveTitle(exact)).Equal(exact)

	gt.V(t, store.DeriveTitle(strings.Repeat("a", 31))).Equal(strings.Repeat("a", 30) + "...")

	// Truncation counts characters, not bytes.
	kana := strings.Repeat("あ", 31)
	gt.V(t, store.DeriveTitle(kana)).Equal(strings.Repeat("あ", 30) + "...")
}
