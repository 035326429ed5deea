package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

const (
	resultsFile   = "results.jsonl"
	cooldownsFile = "cooldowns.jsonl"
)

// RankingStore keeps results and cooldowns as append-only JSON-lines logs in a local directory.
// Both logs are replayed on open; every write is fsynced before it becomes visible to readers.
type RankingStore struct {
	log *zap.Logger

	mu        sync.RWMutex
	results   *os.File
	cooldownF *os.File
	records   []domain.ResultRecord
	cooldowns map[string]time.Time
}

type cooldownEntry struct {
	Matric string    `json:"matric"`
	At     time.Time `json:"at"`
}

// Open creates dir if needed and loads existing logs.
func Open(dir string, log *zap.Logger) (*RankingStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &RankingStore{log: log, cooldowns: make(map[string]time.Time)}

	results, err := openLog(filepath.Join(dir, resultsFile))
	if err != nil {
		return nil, err
	}
	s.results = results

	cooldowns, err := openLog(filepath.Join(dir, cooldownsFile))
	if err != nil {
		results.Close()
		return nil, err
	}
	s.cooldownF = cooldowns

	if err := replay(results, log, func(line []byte) error {
		var rec domain.ResultRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		s.records = append(s.records, rec)
		return nil
	}); err != nil {
		s.Close()
		return nil, fmt.Errorf("load results: %w", err)
	}
	if err := replay(cooldowns, log, func(line []byte) error {
		var entry cooldownEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}
		s.cooldowns[entry.Matric] = entry.At
		return nil
	}); err != nil {
		s.Close()
		return nil, fmt.Errorf("load cooldowns: %w", err)
	}

	log.Info("ranking store opened",
		zap.String("dir", dir),
		zap.Int("results", len(s.records)),
		zap.Int("cooldowns", len(s.cooldowns)),
	)
	return s, nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// replay feeds every complete line to fn. A torn final line left by a crash is dropped and truncated.
func replay(f *os.File, log *zap.Logger, fn func([]byte) error) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	reader := bufio.NewReader(f)
	var offset int64
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(bytes.TrimSpace(line)) > 0 {
				log.Warn("dropping torn log entry", zap.String("file", f.Name()), zap.Int64("offset", offset))
				if err := f.Truncate(offset); err != nil {
					return err
				}
			}
			break
		}
		if err != nil {
			return err
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if err := fn(trimmed); err != nil {
				return fmt.Errorf("decode entry at offset %d: %w", offset, err)
			}
		}
		offset += int64(len(line))
	}
	_, err := f.Seek(0, io.SeekEnd)
	return err
}

// appendLine writes one JSON line and syncs it, rolling the file back on failure.
func appendLine(f *os.File, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	start, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Truncate(start)
		_, _ = f.Seek(start, io.SeekStart)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Truncate(start)
		_, _ = f.Seek(start, io.SeekStart)
		return err
	}
	return nil
}

func (s *RankingStore) Append(_ context.Context, rec domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appendLine(s.results, rec); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *RankingStore) Leaderboard(_ context.Context) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.RankResults(s.records), nil
}

func (s *RankingStore) RecordCooldown(_ context.Context, matric string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appendLine(s.cooldownF, cooldownEntry{Matric: matric, At: at}); err != nil {
		return fmt.Errorf("append cooldown: %w", err)
	}
	s.cooldowns[matric] = at
	return nil
}

func (s *RankingStore) IsOnCooldown(_ context.Context, matric string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.OnCooldown(s.cooldowns[matric], now), nil
}

// Close releases both log files.
func (s *RankingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.results != nil {
		errs = append(errs, s.results.Close())
		s.results = nil
	}
	if s.cooldownF != nil {
		errs = append(errs, s.cooldownF.Close())
		s.cooldownF = nil
	}
	return errors.Join(errs...)
}
