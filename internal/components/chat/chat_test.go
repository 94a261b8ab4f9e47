package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat"
	"github.com/MahdiBaghbani/pizzabot-go/internal/components/chat/chattest"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache/memory"
)

var bot = chat.BotIdentity{ID: "UBOT", Name: "pizzabot"}

func TestTargetedText(t *testing.T) {
	tests := []struct {
		name   string
		in     chat.Incoming
		want   string
		wantOK bool
	}{
		{"dm passes through", chat.Incoming{Text: "  yes  "}, "yes", true},
		{"dm with mention is stripped", chat.Incoming{Text: "<@UBOT> opt out"}, "opt out", true},
		{"channel with id mention", chat.Incoming{Channel: "general", Text: "<@UBOT>: opt out"}, "opt out", true},
		{"channel with name mention", chat.Incoming{Channel: "general", Text: "@PizzaBot opt in general"}, "opt in general", true},
		{"channel with bare name", chat.Incoming{Channel: "general", Text: "pizzabot: hi"}, "hi", true},
		{"channel chatter ignored", chat.Incoming{Channel: "general", Text: "lunch anyone?"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chat.TargetedText(tt.in, bot)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("TargetedText() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// Case folding can change byte length (U+212A KELVIN SIGN lowers to a
// one-byte "k"); the prefix must be cut from the original text intact.
func TestTargetedText_FoldingKeepsByteOffsets(t *testing.T) {
	kbot := chat.BotIdentity{ID: "UK", Name: "kbot"}
	tests := []struct {
		name   string
		in     chat.Incoming
		want   string
		wantOK bool
	}{
		{"dm is passed through unmangled", chat.Incoming{Text: "\u212Abot: opt out"}, "\u212Abot: opt out", true},
		{"channel without a real mention", chat.Incoming{Channel: "general", Text: "\u212Abot: opt out"}, "", false},
		{"upper case mention", chat.Incoming{Channel: "general", Text: "KBOT: opt out"}, "opt out", true},
		{"text shorter than every handle", chat.Incoming{Text: "kb"}, "kb", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chat.TargetedText(tt.in, kbot)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("TargetedText() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDirectAndChannelMessages(t *testing.T) {
	if m := chat.Direct("U1", "hi"); !m.IsDirect() || m.Channel != "" {
		t.Errorf("Direct() = %+v", m)
	}
	if m := chat.ToChannel("#general", "hi"); m.IsDirect() || m.Channel != "general" {
		t.Errorf("ToChannel() = %+v", m)
	}
}

type recordingHandler struct {
	claim bool
	err   error
	seen  []chat.Incoming
}

func (h *recordingHandler) Handle(ctx context.Context, in chat.Incoming) (bool, error) {
	h.seen = append(h.seen, in)
	return h.claim, h.err
}

func newWorkspace() *chattest.Gateway {
	gw := chattest.New("UBOT")
	gw.AddUser(chat.User{ID: "U1", Name: "alice"})
	gw.AddChannel("general", "U1")
	return gw
}

func TestDispatcher_FirstClaimWins(t *testing.T) {
	gw := newWorkspace()
	first := &recordingHandler{claim: true}
	second := &recordingHandler{claim: true}
	d := chat.NewDispatcher(gw, bot, "", nil, first, second)

	handled, err := d.Dispatch(context.Background(), chat.Incoming{UserID: "U1", Text: "opt out"})
	if err != nil || !handled {
		t.Fatalf("Dispatch() = (%v, %v), want handled", handled, err)
	}
	if len(first.seen) != 1 || len(second.seen) != 0 {
		t.Errorf("expected only the first handler to see the message: %d/%d", len(first.seen), len(second.seen))
	}
	if first.seen[0].UserName != "alice" {
		t.Errorf("expected user name to be resolved, got %q", first.seen[0].UserName)
	}
}

func TestDispatcher_FallsThroughAndSendsHelp(t *testing.T) {
	gw := newWorkspace()
	h := &recordingHandler{}
	d := chat.NewDispatcher(gw, bot, "try yes, no or opt out", nil, h)

	handled, err := d.Dispatch(context.Background(), chat.Incoming{UserID: "U1", Text: "hello"})
	if err != nil || handled {
		t.Fatalf("Dispatch() = (%v, %v), want unhandled", handled, err)
	}
	msgs := gw.SentTo("U1")
	if len(msgs) != 1 || msgs[0].Text != "try yes, no or opt out" {
		t.Errorf("expected one help reply, got %+v", msgs)
	}
}

func TestDispatcher_IgnoresChannelChatterAndSelf(t *testing.T) {
	gw := newWorkspace()
	h := &recordingHandler{claim: true}
	d := chat.NewDispatcher(gw, bot, "help", nil, h)
	ctx := context.Background()

	if handled, _ := d.Dispatch(ctx, chat.Incoming{UserID: "U1", Channel: "general", Text: "pizza?"}); handled {
		t.Error("channel chatter without a mention must be ignored")
	}
	if handled, _ := d.Dispatch(ctx, chat.Incoming{UserID: "UBOT", Text: "yes"}); handled {
		t.Error("the bot's own messages must be ignored")
	}
	if len(h.seen) != 0 {
		t.Errorf("handler should not have been called, saw %d", len(h.seen))
	}
	if len(gw.Sent()) != 0 {
		t.Errorf("no help should be sent for ignored messages, got %+v", gw.Sent())
	}
}

func TestDispatcher_HandlerErrorStopsChain(t *testing.T) {
	gw := newWorkspace()
	failing := &recordingHandler{err: errors.New("disk full")}
	next := &recordingHandler{claim: true}
	d := chat.NewDispatcher(gw, bot, "", nil, failing, next)

	_, err := d.Dispatch(context.Background(), chat.Incoming{UserID: "U1", Text: "yes"})
	if err == nil {
		t.Fatal("expected handler error to surface")
	}
	if len(next.seen) != 0 {
		t.Error("handlers after a failure must not run")
	}
}

func TestCachedGateway_CachesLookups(t *testing.T) {
	gw := newWorkspace()
	c := memory.New(time.Minute, 0)
	defer c.Close()
	cached := chat.NewCachedGateway(gw, c, 0, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := cached.LookupUser(ctx, "U1")
		if err != nil {
			t.Fatalf("LookupUser: %v", err)
		}
		if u.Name != "alice" {
			t.Errorf("expected alice, got %q", u.Name)
		}
	}
	if gw.Lookups() != 1 {
		t.Errorf("expected one upstream lookup, got %d", gw.Lookups())
	}
}

func TestCachedGateway_DoesNotCacheFailures(t *testing.T) {
	gw := newWorkspace()
	c := memory.New(time.Minute, 0)
	defer c.Close()
	cached := chat.NewCachedGateway(gw, c, 0, nil)
	ctx := context.Background()

	if _, err := cached.LookupUser(ctx, "U404"); !errors.Is(err, chat.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	gw.AddUser(chat.User{ID: "U404", Name: "late"})
	if u, err := cached.LookupUser(ctx, "U404"); err != nil || u.Name != "late" {
		t.Errorf("expected fresh lookup after failure, got (%+v, %v)", u, err)
	}
}

func TestCachedGateway_ForgetsUndeliverableUsers(t *testing.T) {
	gw := newWorkspace()
	c := memory.New(time.Minute, 0)
	defer c.Close()
	cached := chat.NewCachedGateway(gw, c, 0, nil)
	ctx := context.Background()

	if _, err := cached.LookupUser(ctx, "U1"); err != nil {
		t.Fatalf("LookupUser: %v", err)
	}
	gw.FailDeliveryTo("U1", chat.ErrUnknownUser)
	if err := cached.SendMessage(ctx, chat.Direct("U1", "hi")); !errors.Is(err, chat.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}

	if _, err := cached.LookupUser(ctx, "U1"); err != nil {
		t.Fatalf("LookupUser: %v", err)
	}
	if gw.Lookups() != 2 {
		t.Errorf("expected the cache entry to be dropped, upstream lookups = %d", gw.Lookups())
	}
}
