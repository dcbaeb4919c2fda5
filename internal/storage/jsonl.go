package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zero-given/site33/internal/model"
)

// JsonlTokenStore keeps token metadata in a JSONL file, one token per line.
type JsonlTokenStore struct {
	path string
	mu   sync.Mutex
}

func NewJsonlTokenStore(path string) *JsonlTokenStore {
	return &JsonlTokenStore{path: path}
}

// LoadTokens reads every stored token. A missing file is an empty store.
func (s *JsonlTokenStore) LoadTokens(ctx context.Context) ([]model.TokenMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// PutTokens merges tokens into the file. Existing entries win.
func (s *JsonlTokenStore) PutTokens(ctx context.Context, tokens []model.TokenMeta) error {
	if len(tokens) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}
	merged := make(map[string]model.TokenMeta, len(existing)+len(tokens))
	for _, meta := range existing {
		merged[strings.ToLower(meta.Address)] = meta
	}
	added := 0
	for _, meta := range tokens {
		key := strings.ToLower(meta.Address)
		if _, ok := merged[key]; ok {
			continue
		}
		merged[key] = meta
		added++
	}
	if added == 0 {
		return nil
	}

	out := make([]model.TokenMeta, 0, len(merged))
	for _, meta := range merged {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Address) < strings.ToLower(out[j].Address)
	})
	return s.write(out)
}

func (s *JsonlTokenStore) load() ([]model.TokenMeta, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer file.Close()

	var tokens []model.TokenMeta
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var meta model.TokenMeta
		if err := json.Unmarshal([]byte(text), &meta); err != nil {
			return nil, fmt.Errorf("parse token line %d: %w", line, err)
		}
		tokens = append(tokens, meta)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	return tokens, nil
}

func (s *JsonlTokenStore) write(tokens []model.TokenMeta) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open token tmp: %w", err)
	}

	writer := bufio.NewWriter(file)
	for _, meta := range tokens {
		line, err := json.Marshal(meta)
		if err != nil {
			file.Close()
			return fmt.Errorf("marshal token: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			file.Close()
			return fmt.Errorf("write token: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			file.Close()
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush tokens: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close token tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename token file: %w", err)
	}
	return nil
}
