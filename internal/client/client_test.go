package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(baseURL string) *Client {
	return New(Options{BaseURL: baseURL, Token: "token", Timeout: 2 * time.Second})
}

func TestListChatsDecodesSummaries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c1","title":"Budget review","updatedAt":"2026-01-02T03:04:05Z"}]`))
	}))
	defer server.Close()

	chats, err := newTestClient(server.URL).ListChats(context.Background())
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != "c1" || chats[0].Title != "Budget review" {
		t.Fatalf("unexpected chats: %#v", chats)
	}
	if chats[0].UpdatedAt.IsZero() {
		t.Fatalf("expected updatedAt to be parsed")
	}
}

func TestGetChatDecodesMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/c1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","title":"t","messages":[
			{"id":"m1","chatId":"c1","role":"USER","content":"how much on food?","createdAt":"2026-01-02T03:04:05Z"},
			{"id":"m2","chatId":"c1","role":"ASSISTANT","content":"Spending","responseType":"TABLE","metadata":{"columns":["a"],"rows":[["1"]]},"createdAt":"2026-01-02T03:04:06Z"}
		]}`))
	}))
	defer server.Close()

	session, err := newTestClient(server.URL).GetChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("unexpected messages: %#v", session.Messages)
	}
	if session.Messages[1].ResponseType != "TABLE" || len(session.Messages[1].Metadata) == 0 {
		t.Fatalf("expected structured response, got %#v", session.Messages[1])
	}
}

func TestGetChatRejectsBlankID(t *testing.T) {
	if _, err := newTestClient("http://127.0.0.1:1").GetChat(context.Background(), "  "); err == nil {
		t.Fatalf("expected blank id to fail")
	}
}

func TestAPIErrorUsesErrorFieldThenStatusLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat/json" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"not yours"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer server.Close()
	c := newTestClient(server.URL)

	_, err := c.GetChat(context.Background(), "json")
	apiErr := AsAPIError(err)
	if apiErr == nil || apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "not yours" {
		t.Fatalf("unexpected error: %#v", err)
	}

	_, err = c.GetChat(context.Background(), "html")
	apiErr = AsAPIError(err)
	if apiErr == nil || apiErr.Message != "502 Bad Gateway" {
		t.Fatalf("expected status line fallback, got %#v", err)
	}
}
