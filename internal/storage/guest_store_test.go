package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shopchat/go-client/pkg/models"
)

func TestGuestStateStoreRoundtripEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.enc")
	store := NewGuestStateStore(path, "secret")
	record := models.GuestRecord{
		ConversationID: "c-1",
		Guest:          models.GuestInfo{Name: "An", Phone: "0912345678"},
	}
	if err := store.Set(record); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file failed: %v", err)
	}
	if strings.Contains(string(raw), "0912345678") {
		t.Fatal("guest phone must not appear in plaintext on disk")
	}

	reopened := NewGuestStateStore(path, "secret")
	got, ok, err := reopened.Get()
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.ConversationID != "c-1" || got.Guest.Phone != "0912345678" {
		t.Fatalf("unexpected record: %#v", got)
	}
}

func TestGuestStateStoreAbsentRecord(t *testing.T) {
	store := NewGuestStateStore(filepath.Join(t.TempDir(), "guest.enc"), "secret")
	_, ok, err := store.Get()
	if err != nil {
		t.Fatalf("get on missing file failed: %v", err)
	}
	if ok {
		t.Fatal("expected no record")
	}
}

func TestGuestStateStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.json")
	store := NewGuestStateStore(path, "")
	if err := store.Set(models.GuestRecord{
		ConversationID: "c-2",
		Guest:          models.GuestInfo{Name: "B", Email: "b@example.com"},
	}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("clear must remove the persisted file")
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear must be idempotent: %v", err)
	}
}

func TestGuestStateStoreRejectsEmptyConversationID(t *testing.T) {
	store := NewGuestStateStore("", "")
	if err := store.Set(models.GuestRecord{Guest: models.GuestInfo{Name: "x"}}); err == nil {
		t.Fatal("expected error for record without conversation id")
	}
}

func TestGuestStateStoreReadsLegacyPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.enc")
	raw := `{"version":1,"record":{"conversation_id":"c-9","guest":{"name":"An","email":"an@example.com"}}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write legacy file failed: %v", err)
	}
	store := NewGuestStateStore(path, "secret")
	got, ok, err := store.Get()
	if err != nil || !ok {
		t.Fatalf("get on legacy plaintext failed: ok=%v err=%v", ok, err)
	}
	if got.ConversationID != "c-9" || got.Guest.Email != "an@example.com" {
		t.Fatalf("unexpected record: %#v", got)
	}
}

func TestGuestStateStoreInMemory(t *testing.T) {
	store := NewGuestStateStore("", "")
	record := models.GuestRecord{ConversationID: "c-3", Guest: models.GuestInfo{Phone: "0900000000"}}
	if err := store.Set(record); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, ok, err := store.Get()
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got.ConversationID != "c-3" {
		t.Fatalf("unexpected record: %#v", got)
	}
}
