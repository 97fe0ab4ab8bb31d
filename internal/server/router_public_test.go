package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

type publicProfileResponse struct {
	Profile publicProfilePayload `json:"profile"`
	Links   []publicLinkPayload  `json:"links"`
}

func TestPublicProfileListsActiveLinksAndRecordsView(t *testing.T) {
	env := newTestEnvironment(t)
	token, ownerID := env.signUp(t, "jane@example.com", "jane")

	env.do(t, http.MethodPost, "/links", token, map[string]string{"title": "Blog", "url": "blog.example"})
	_, payload := env.do(t, http.MethodPost, "/links", token, map[string]string{"title": "Hidden", "url": "hidden.example"})
	hiddenID := decodeLinks(t, payload).Link.ID
	env.do(t, http.MethodPatch, "/links/"+hiddenID, token, map[string]any{"is_active": false})

	response, payload := env.do(t, http.MethodGet, "/public/profiles/JANE", "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", response.StatusCode, payload)
	}
	var decoded publicProfileResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode public profile: %v", err)
	}
	if decoded.Profile.Username != "jane" {
		t.Fatalf("unexpected username %q", decoded.Profile.Username)
	}
	if len(decoded.Links) != 1 || decoded.Links[0].Title != "Blog" {
		t.Fatalf("expected only the active link, got %#v", decoded.Links)
	}

	hasVisitorCookie := false
	for _, cookie := range response.Cookies() {
		if cookie.Name == visitorCookieName && cookie.Value != "" {
			hasVisitorCookie = true
		}
	}
	if !hasVisitorCookie {
		t.Fatalf("expected visitor cookie to be issued")
	}

	views, _ := env.recorder.snapshot()
	if len(views) != 1 {
		t.Fatalf("expected one queued view, got %d", len(views))
	}
	if views[0].ProfileID != ownerID || views[0].ViewerID != "" || views[0].VisitorSession == "" {
		t.Fatalf("unexpected view event %#v", views[0])
	}
}

func TestPublicProfileCarriesViewerIdentity(t *testing.T) {
	env := newTestEnvironment(t)
	token, ownerID := env.signUp(t, "jane@example.com", "jane")

	response, _ := env.do(t, http.MethodGet, "/public/profiles/jane", token, nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	views, _ := env.recorder.snapshot()
	if len(views) != 1 || views[0].ViewerID != ownerID {
		t.Fatalf("expected owner identity on the view event, got %#v", views)
	}
}

func TestPublicProfileUnknownUsername(t *testing.T) {
	env := newTestEnvironment(t)
	response, payload := env.do(t, http.MethodGet, "/public/profiles/nobody", "", nil)
	if response.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", response.StatusCode)
	}
	if decodeError(t, payload) != "profile_not_found" {
		t.Fatalf("unexpected error payload %s", payload)
	}
	views, _ := env.recorder.snapshot()
	if len(views) != 0 {
		t.Fatalf("expected no view for a missing profile")
	}
}

func TestRedirectRecordsClick(t *testing.T) {
	env := newTestEnvironment(t)
	token, ownerID := env.signUp(t, "jane@example.com", "jane")
	_, payload := env.do(t, http.MethodPost, "/links", token, map[string]string{"title": "Blog", "url": "blog.example/post"})
	linkID := decodeLinks(t, payload).Link.ID

	response, _ := env.do(t, http.MethodGet, "/go/"+linkID, "", nil)
	if response.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", response.StatusCode)
	}
	if location := response.Header.Get("Location"); location != "https://blog.example/post" {
		t.Fatalf("unexpected redirect target %q", location)
	}

	response, payload = env.do(t, http.MethodPost, "/public/links/"+linkID+"/clicks", "", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", response.StatusCode, payload)
	}
	var decoded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("failed to decode click response: %v", err)
	}
	if decoded.URL != "https://blog.example/post" {
		t.Fatalf("unexpected click url %q", decoded.URL)
	}

	_, clicks := env.recorder.snapshot()
	if len(clicks) != 2 {
		t.Fatalf("expected two queued clicks, got %d", len(clicks))
	}
	for _, click := range clicks {
		if click.ProfileID != ownerID || click.LinkID != linkID {
			t.Fatalf("unexpected click event %#v", click)
		}
	}
}

func TestRedirectIgnoresInactiveLinks(t *testing.T) {
	env := newTestEnvironment(t)
	token, _ := env.signUp(t, "jane@example.com", "jane")
	_, payload := env.do(t, http.MethodPost, "/links", token, map[string]string{"title": "Blog", "url": "blog.example"})
	linkID := decodeLinks(t, payload).Link.ID
	env.do(t, http.MethodPatch, "/links/"+linkID, token, map[string]any{"is_active": false})

	response, payload := env.do(t, http.MethodGet, "/go/"+linkID, "", nil)
	if response.StatusCode != http.StatusNotFound || decodeError(t, payload) != "link_not_found" {
		t.Fatalf("expected inactive link to be hidden, got %d %s", response.StatusCode, payload)
	}
	_, clicks := env.recorder.snapshot()
	if len(clicks) != 0 {
		t.Fatalf("expected no click for an inactive link")
	}
}
