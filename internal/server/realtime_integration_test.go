package server

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRealtimeStreamEmitsLinkChangeEvents(t *testing.T) {
	env := newTestEnvironment(t)
	token, userID := env.signUp(t, "jane@example.com", "jane")

	streamRequest, err := http.NewRequest(http.MethodGet, env.server.URL+"/events?access_token="+token, http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if contentType := streamResp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "text/event-stream") {
		t.Fatalf("unexpected stream content type %q", contentType)
	}
	if env.realtime.SubscriberCount(userID) != 1 {
		t.Fatalf("expected stream to be subscribed before headers were flushed")
	}

	streamReader := bufio.NewReader(streamResp.Body)

	response, payload := env.do(t, http.MethodPost, "/links", token, map[string]string{"title": "Blog", "url": "blog.example"})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status %d: %s", response.StatusCode, payload)
	}

	currentEventType := ""
	deadline := time.After(5 * time.Second)
	type readResult struct {
		line string
		err  error
	}
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := streamReader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-deadline:
			t.Fatal("timed out waiting for realtime event")
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != RealtimeEventLinksChanged {
				continue
			}
			var event realtimeEventPayload
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &event); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if event.Type != RealtimeEventLinksChanged || event.Source != realtimeSourceBackend || event.Timestamp == 0 {
				t.Fatalf("unexpected event payload %#v", event)
			}
			return
		}
	}
}

func TestRealtimeStreamRequiresSession(t *testing.T) {
	env := newTestEnvironment(t)
	response, _ := env.do(t, http.MethodGet, "/events", "", nil)
	if response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", response.StatusCode)
	}
}

func TestRealtimeStreamEndsWhenDispatcherCloses(t *testing.T) {
	env := newTestEnvironment(t)
	token, userID := env.signUp(t, "jane@example.com", "jane")

	streamResp, err := http.Get(env.server.URL + "/events?access_token=" + token)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if env.realtime.SubscriberCount(userID) != 1 {
		t.Fatalf("expected an open subscription")
	}

	env.realtime.Close()

	finished := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, streamResp.Body)
		finished <- err
	}()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("expected stream to end cleanly, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream stayed open after the dispatcher closed")
	}
}
