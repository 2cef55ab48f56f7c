package secrets

import (
	"errors"
	"testing"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) Get(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memoryStore) Delete(key string) error {
	if _, ok := m.values[key]; !ok {
		return ErrNotFound
	}
	delete(m.values, key)
	return nil
}

func TestBotTokenRoundTrip(t *testing.T) {
	store := newMemoryStore()

	if _, err := BotToken(store); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before storing, got %v", err)
	}

	if err := SetBotToken(store, "abc123"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	token, err := BotToken(store)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if token != "abc123" {
		t.Errorf("expected abc123, got %s", token)
	}

	if err := DeleteBotToken(store); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := BotToken(store); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
