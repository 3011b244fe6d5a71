package testhelpers

import (
	"context"
	"testing"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
)

func TestFakeProvider_Chat(t *testing.T) {
	fp := &FakeProvider{Responses: []string{"ok"}}
	out, err := fp.Chat(context.Background(), llm.Request{Model: "model"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected content: %q", out)
	}
}

func TestFakeProvider_MultipleCallsAdvanceResponses(t *testing.T) {
	fp := &FakeProvider{Responses: []string{"first", "second"}}
	a, _ := fp.Chat(context.Background(), llm.Request{})
	b, _ := fp.Chat(context.Background(), llm.Request{})
	if a != "first" || b != "second" {
		t.Fatalf("expected sequential responses, got %q then %q", a, b)
	}
	if fp.CallCount() != 2 {
		t.Fatalf("expected call count 2, got %d", fp.CallCount())
	}
}

func TestFakeProvider_Error(t *testing.T) {
	fp := &FakeProvider{Err: context.DeadlineExceeded}
	if _, err := fp.Chat(context.Background(), llm.Request{}); err == nil {
		t.Fatal("expected error")
	}
}
