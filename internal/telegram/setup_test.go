package telegram

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/go-cmp/cmp"

	"github.com/edgard/askbot/internal/bot/handlers"
)

func TestApplyMiddleware_Order(t *testing.T) {
	t.Parallel()

	var trace []string
	mw := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				trace = append(trace, name)
				next(ctx, b, u)
			}
		}
	}
	h := applyMiddleware(func(context.Context, *bot.Bot, *models.Update) {
		trace = append(trace, "handler")
	}, []bot.Middleware{mw("outer"), mw("inner")})

	h(context.Background(), nil, &models.Update{})

	if diff := cmp.Diff([]string{"outer", "inner", "handler"}, trace); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

type registration struct {
	Type      bot.HandlerType
	Pattern   string
	MatchType bot.MatchType
}

type fakeRegistrar struct {
	got []registration
}

func (f *fakeRegistrar) RegisterHandler(ht bot.HandlerType, pattern string, mt bot.MatchType, _ bot.HandlerFunc, _ ...bot.Middleware) string {
	f.got = append(f.got, registration{ht, pattern, mt})
	return pattern
}

func TestRegisterHandlers(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := func(context.Context, *bot.Bot, *models.Update) {}

	r := &fakeRegistrar{}
	err := RegisterHandlers(r, log, map[string]handlers.RegisteredHandler{
		"/start": {HandlerType: bot.HandlerTypeMessageText, Pattern: "start", Handler: noop, MatchType: bot.MatchTypeCommandStartOnly},
		"/nil":   {HandlerType: bot.HandlerTypeMessageText, Pattern: "nil"},
	})
	if err != nil {
		t.Fatalf("RegisterHandlers() error = %v", err)
	}

	want := []registration{{bot.HandlerTypeMessageText, "start", bot.MatchTypeCommandStartOnly}}
	if diff := cmp.Diff(want, r.got); diff != "" {
		t.Errorf("registrations mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenPrefix(t *testing.T) {
	t.Parallel()
	if got := tokenPrefix("123456789:ABCDEF"); got != "12345678..." {
		t.Errorf("tokenPrefix() = %q", got)
	}
	if got := tokenPrefix("short"); got != "***" {
		t.Errorf("tokenPrefix(short) = %q", got)
	}
}
