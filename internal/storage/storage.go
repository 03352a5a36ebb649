package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BenjaminSRussell/crawlchimp/internal/types"
)

const (
	// JournalFile holds one JSON page record per line
	JournalFile = "pages.jsonl"

	// ConfigFile holds the configuration of the last run
	ConfigFile = "config.json"

	maxRecordBytes = 1 << 20
)

// Storage appends page records to a JSONL journal in a data directory
type Storage struct {
	dataDir string
	mu      sync.Mutex
	jsonl   *os.File
}

// New creates a new storage instance
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(dataDir, JournalFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
		jsonl:   file,
	}, nil
}

// SavePage appends a page record to the journal
func (s *Storage) SavePage(result types.PageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if _, err := s.jsonl.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return nil
}

// SaveConfig writes the run configuration next to the journal. Secrets are
// left out by the Config json tags.
func (s *Storage) SaveConfig(config types.Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dataDir, ConfigFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// LoadResults reads every record journaled so far
func (s *Storage) LoadResults() ([]types.PageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return LoadResults(s.dataDir)
}

// Close closes the storage
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jsonl == nil {
		return nil
	}
	err := s.jsonl.Close()
	s.jsonl = nil
	return err
}

// LoadResults reads the journal in dataDir. A missing journal is empty and
// lines that do not decode are skipped.
func LoadResults(dataDir string) ([]types.PageResult, error) {
	file, err := os.Open(filepath.Join(dataDir, JournalFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.PageResult{}, nil
		}
		return nil, fmt.Errorf("failed to read JSONL file: %w", err)
	}
	defer file.Close()

	results := make([]types.PageResult, 0)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64<<10), maxRecordBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var result types.PageResult
		if err := json.Unmarshal(line, &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	if err := scanner.Err(); err != nil {
		return results, fmt.Errorf("failed to scan JSONL file: %w", err)
	}

	return results, nil
}
