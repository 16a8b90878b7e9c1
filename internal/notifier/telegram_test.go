package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSplitMessage(t *testing.T) {
	if parts := splitMessage("short", 10); len(parts) != 1 || parts[0] != "short" {
		t.Errorf("unexpected split of short text: %q", parts)
	}

	text := strings.Repeat("line-xxxx\n", 10) // 100 bytes
	parts := splitMessage(text, 35)
	if strings.Join(parts, "") != text {
		t.Error("split must not lose text")
	}
	for _, p := range parts {
		if len(p) > 35 {
			t.Errorf("part too long: %d", len(p))
		}
		if !strings.HasSuffix(p, "\n") {
			t.Errorf("expected line-boundary split, got %q", p)
		}
	}

	long := strings.Repeat("投", 20) // 60 bytes, one line
	parts = splitMessage(long, 10)
	if strings.Join(parts, "") != long {
		t.Error("mid-line split must not lose text")
	}
	for _, p := range parts {
		if !strings.HasPrefix(p, "投") {
			t.Errorf("split inside a rune: %q", p)
		}
	}
}

func TestSend(t *testing.T) {
	var got map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	if err := n.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL
	if err := n.Send(context.Background(), "x"); err == nil {
		t.Error("expected error for 400")
	}
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var replies []string
	polled := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			var p map[string]any
			json.NewDecoder(r.Body).Decode(&p)
			replies = append(replies, p["text"].(string))
			cancel()
			w.Write([]byte(`{"ok":true}`))
			return
		}
		polled++
		if polled > 1 {
			w.Write([]byte(`{"ok":true,"result":[]}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"text":"/stock 2330","chat":{"id":999}}},
			{"update_id":8,"message":{"text":" /scan ","chat":{"id":42}}}
		]}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = srv.URL

	var handled []string
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			handled = append(handled, cmd)
			return "ack " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	if len(handled) != 1 || handled[0] != "/scan" {
		t.Errorf("expected only the configured chat's command, got %v", handled)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "ack /scan" {
		t.Errorf("unexpected replies %v", replies)
	}
}
