package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"shopchat/go-client/internal/securestore"
	"shopchat/go-client/pkg/models"
)

// GuestStateStore persists the guest contact record between visits. With a
// path and secret configured the record is encrypted at rest; with a path
// only it is plaintext JSON; with neither it lives in memory for the process
// lifetime.
type GuestStateStore struct {
	mu     sync.Mutex
	path   string
	secret string
	mem    *models.GuestRecord
}

type persistedGuestState struct {
	Version int                `json:"version"`
	Record  models.GuestRecord `json:"record"`
}

func NewGuestStateStore(path, secret string) *GuestStateStore {
	return &GuestStateStore{
		path:   strings.TrimSpace(path),
		secret: strings.TrimSpace(secret),
	}
}

func (g *GuestStateStore) Get() (models.GuestRecord, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.path == "" {
		if g.mem == nil {
			return models.GuestRecord{}, false, nil
		}
		return *g.mem, true, nil
	}
	var plaintext []byte
	var err error
	if securestore.IsStorageConfigured(g.path, g.secret) {
		plaintext, err = securestore.ReadDecryptedFile(g.path, g.secret)
		if errors.Is(err, securestore.ErrLegacyData) {
			// Pre-encryption plaintext file; readable once, re-encrypted on
			// the next Set.
			plaintext, err = os.ReadFile(g.path)
		}
	} else {
		plaintext, err = os.ReadFile(g.path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.GuestRecord{}, false, nil
		}
		return models.GuestRecord{}, false, err
	}
	var state persistedGuestState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return models.GuestRecord{}, false, err
	}
	if state.Version != 1 || strings.TrimSpace(state.Record.ConversationID) == "" {
		return models.GuestRecord{}, false, errors.New("guest persistence payload is invalid")
	}
	return state.Record, true, nil
}

func (g *GuestStateStore) Set(record models.GuestRecord) error {
	if strings.TrimSpace(record.ConversationID) == "" {
		return errors.New("guest record requires a conversation id")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.path == "" {
		copied := record
		g.mem = &copied
		return nil
	}
	state := persistedGuestState{Version: 1, Record: record}
	if g.secret != "" {
		return securestore.WriteEncryptedJSON(g.path, g.secret, state)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(g.path, payload, 0o600)
}

func (g *GuestStateStore) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mem = nil
	if g.path == "" {
		return nil
	}
	if err := os.Remove(g.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
