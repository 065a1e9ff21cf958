package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store loads and saves the cache document.
type Store interface {
	// Load never fails; a missing or damaged cache yields an empty document.
	Load(ctx context.Context) *Document
	Save(ctx context.Context, doc *Document) error
}

// FileStore keeps the document as indented JSON on local disk.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// rawDocument defers the inflation section so a damaged series does not discard cached extremes.
type rawDocument struct {
	Pairs     map[string]ExtremeEntry `json:"pairs"`
	Inflation json.RawMessage         `json:"inflation"`
}

func (s *FileStore) Load(_ context.Context) *Document {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[WARN] read cache %s: %v, starting empty", s.Path, err)
		}
		return NewDocument()
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("[WARN] parse cache %s: %v, starting empty", s.Path, err)
		return NewDocument()
	}

	doc := NewDocument()
	for k, v := range raw.Pairs {
		doc.Pairs[k] = v
	}
	if len(raw.Inflation) > 0 && string(raw.Inflation) != "null" {
		var infl InflationEntry
		if err := json.Unmarshal(raw.Inflation, &infl); err != nil {
			log.Printf("[WARN] parse cached inflation: %v, will refetch", err)
		} else {
			doc.Inflation = &infl
		}
	}
	return doc
}

// Save writes to a temporary file in the same directory and renames it into place.
func (s *FileStore) Save(_ context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// MemoryStore keeps the document in process. Loads return a deep copy.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := NewDocument()
	if m.data != nil {
		if err := json.Unmarshal(m.data, doc); err != nil {
			return NewDocument()
		}
		if doc.Pairs == nil {
			doc.Pairs = make(map[string]ExtremeEntry)
		}
	}
	return doc
}

func (m *MemoryStore) Save(_ context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Saves returns how many times the document was saved.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
