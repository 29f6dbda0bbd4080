package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	stageDocuments = "documents"
	stageDone      = "done"
)

// Cursor is the resume position of a load.
type Cursor struct {
	Stage          string    `json:"stage"`
	FileIndex      int       `json:"file_index"`
	RowOffset      int       `json:"row_offset"`
	TotalProcessed int       `json:"total_processed"`
	TotalFailed    int       `json:"total_failed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// cursorTracker is a concurrency-safe cursor saved every saveEvery documents.
type cursorTracker struct {
	mu        sync.Mutex
	cursor    Cursor
	path      string
	saveEvery int
	dirty     bool
	logger    *zap.Logger
}

// newCursorTracker loads the previous cursor from dataDir when one exists.
func newCursorTracker(dataDir string, saveEvery int, logger *zap.Logger) (*cursorTracker, error) {
	if saveEvery <= 0 {
		saveEvery = 1
	}
	path := filepath.Join(filepath.Clean(dataDir), "cursor.json")
	ct := &cursorTracker{
		path:      path,
		saveEvery: saveEvery,
		logger:    logger,
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &ct.cursor); err != nil {
			return nil, fmt.Errorf("parse cursor %s: %w", path, err)
		}
		logger.Info("Resume from cursor",
			zap.String("stage", ct.cursor.Stage),
			zap.Int("file", ct.cursor.FileIndex),
			zap.Int("offset", ct.cursor.RowOffset),
			zap.Int("processed", ct.cursor.TotalProcessed),
		)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read cursor %s: %w", path, err)
	}

	return ct, nil
}

// Get returns a copy of the cursor.
func (ct *cursorTracker) Get() Cursor {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.cursor
}

// SetStage records the stage and saves immediately.
func (ct *cursorTracker) SetStage(stage string) {
	ct.mu.Lock()
	ct.cursor.Stage = stage
	ct.cursor.UpdatedAt = time.Now()
	ct.dirty = true
	ct.mu.Unlock()
	ct.forceSave()
}

// Advance moves the cursor past a finished batch.
func (ct *cursorTracker) Advance(fileIndex, rowOffset, processed, failed int) {
	ct.mu.Lock()
	if fileIndex > ct.cursor.FileIndex ||
		(fileIndex == ct.cursor.FileIndex && rowOffset > ct.cursor.RowOffset) {
		ct.cursor.FileIndex = fileIndex
		ct.cursor.RowOffset = rowOffset
	}
	before := ct.cursor.TotalProcessed + ct.cursor.TotalFailed
	ct.cursor.TotalProcessed += processed
	ct.cursor.TotalFailed += failed
	ct.cursor.UpdatedAt = time.Now()
	ct.dirty = true
	after := ct.cursor.TotalProcessed + ct.cursor.TotalFailed
	shouldSave := after/ct.saveEvery != before/ct.saveEvery
	ct.mu.Unlock()

	if shouldSave {
		ct.forceSave()
	}
}

func (ct *cursorTracker) forceSave() {
	ct.mu.Lock()
	if !ct.dirty {
		ct.mu.Unlock()
		return
	}
	data, err := json.MarshalIndent(ct.cursor, "", "  ")
	if err != nil {
		ct.mu.Unlock()
		ct.logger.Error("Cursor marshal failed", zap.Error(err))
		return
	}
	ct.dirty = false
	ct.mu.Unlock()

	tmp := ct.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		ct.logger.Error("Cursor write failed", zap.Error(err))
		ct.markDirty()
		return
	}
	if err := os.Rename(tmp, ct.path); err != nil {
		ct.logger.Error("Cursor rename failed", zap.Error(err))
		ct.markDirty()
	}
}

func (ct *cursorTracker) markDirty() {
	ct.mu.Lock()
	ct.dirty = true
	ct.mu.Unlock()
}

// Done marks the load finished.
func (ct *cursorTracker) Done() {
	ct.SetStage(stageDone)
}

// Reset clears the cursor.
func (ct *cursorTracker) Reset() {
	ct.mu.Lock()
	ct.cursor = Cursor{}
	ct.dirty = true
	ct.mu.Unlock()
	ct.forceSave()
}
