package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/iotrustlab/CrossPLC/internal/ir"
)

const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash    string `json:"content_hash"`
	ControllerPath string `json:"controller_path"`
	SchemaVersion  string `json:"schema_version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// controllerCache stores validated controller IRs keyed by source
// path, invalidated by content hash and schema version. It exists so
// repeated analysis runs over an unchanged plant skip validation.
type controllerCache struct {
	dir           string
	schemaVersion string
	mu            sync.Mutex
	index         cacheIndex
}

func newControllerCache(dir, schemaVersion string) *controllerCache {
	return &controllerCache{
		dir:           dir,
		schemaVersion: schemaVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *controllerCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *controllerCache) controllersDir() string {
	return filepath.Join(c.dir, "controllers")
}

func (c *controllerCache) pathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.controllersDir(), hex.EncodeToString(h[:])+".json")
}

func (c *controllerCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *controllerCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

func (c *controllerCache) Get(filePath, contentHash string) (ir.Controller, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok {
		return ir.Controller{}, false, nil
	}
	if entry.ContentHash != contentHash || entry.SchemaVersion != c.schemaVersion {
		return ir.Controller{}, false, nil
	}

	data, err := os.ReadFile(entry.ControllerPath)
	if err != nil {
		return ir.Controller{}, false, fmt.Errorf("read cached controller: %w", err)
	}
	var ctrl ir.Controller
	if err := json.Unmarshal(data, &ctrl); err != nil {
		return ir.Controller{}, false, fmt.Errorf("parse cached controller: %w", err)
	}
	return ctrl, true, nil
}

func (c *controllerCache) Put(filePath, contentHash string, ctrl ir.Controller) error {
	path := c.pathForFile(filePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache controllers dir: %w", err)
	}
	if err := writeJSONAtomic(path, ctrl); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash:    contentHash,
		ControllerPath: path,
		SchemaVersion:  c.schemaVersion,
	}
	c.mu.Unlock()
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
