package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopchat/go-client/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client, server
}

func TestListMessagesBareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/support/conversations/c-1/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"m1","sender":"admin","content":"hello"},{"id":"m2","sender":"guest","content":"hi"}]`))
	}))
	messages, err := client.ListMessages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].SenderKind != models.SenderAdmin || messages[1].SenderKind != models.SenderGuest {
		t.Fatalf("unexpected sender kinds: %#v", messages)
	}
}

func TestListMessagesPageWrapper(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"id":"m1","sender":"agent","content":"hello"}]}`))
	}))
	messages, err := client.ListMessages(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].SenderKind != models.SenderAdmin {
		t.Fatalf("agent must normalize to admin, got %q", messages[0].SenderKind)
	}
}

func TestListMessagesNotFoundCarriesStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"conversation not found"}`, http.StatusNotFound)
	}))
	_, err := client.ListMessages(context.Background(), "gone")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected APIError with 404, got %v", err)
	}
	if apiErr.Message != "conversation not found" {
		t.Fatalf("expected decoded backend message, got %q", apiErr.Message)
	}
}

func TestCreateConversationNormalizesIdentifiers(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload CreatePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload failed: %v", err)
		}
		if payload.GuestName != "An" || payload.GuestPhone != "0912345678" || payload.GuestEmail != "" {
			t.Fatalf("unexpected payload: %#v", payload)
		}
		w.Write([]byte(`{"id":7,"conversationId":"c-1","status":"pending"}`))
	}))
	conv, err := client.CreateConversation(context.Background(), CreatePayload{
		GuestName:  "An",
		GuestPhone: "0912345678",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	if conv.ID != "c-1" || conv.OriginalID != 7 || conv.Status != models.StatusPending {
		t.Fatalf("unexpected conversation: %#v", conv)
	}
}

func TestCreateConversationDefaultsStatusToPending(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7,"conversationId":"c-1"}`))
	}))
	conv, err := client.CreateConversation(context.Background(), CreatePayload{
		GuestName:  "An",
		GuestPhone: "0912345678",
	})
	if err != nil {
		t.Fatalf("create conversation failed: %v", err)
	}
	if conv.Status != models.StatusPending {
		t.Fatalf("create response without status must yield pending, got %q", conv.Status)
	}
}

func TestSendMessageFallsBackToLocalID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	msg, err := client.SendMessage(context.Background(), "c-1", "hi there")
	if err != nil {
		t.Fatalf("send message failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected a locally generated message id")
	}
	if msg.Content != "hi there" || msg.SenderKind != models.SenderCustomer {
		t.Fatalf("unexpected echo message: %#v", msg)
	}
}

func TestAuthorizationHeaderForAuthenticatedVisitor(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"c-9","status":"active"}`))
	}))
	defer server.Close()
	client, err := NewClient(Options{BaseURL: server.URL, Token: func() string { return "tok-1" }})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := client.LookupConversationByUser(context.Background()); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer token header, got %q", gotAuth)
	}
}

func TestReopenConversationNormalizesStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/support/conversations/c-1/reopen" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"OPEN"}`))
	}))
	status, err := client.ReopenConversation(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if status != models.StatusActive {
		t.Fatalf("expected active, got %q", status)
	}
}

func TestGuestLookupRequiresContact(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	if _, err := client.LookupConversationByGuestContact(context.Background(), "", " "); err == nil {
		t.Fatal("expected error without contact details")
	}
}
