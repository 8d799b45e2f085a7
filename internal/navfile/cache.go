// Package navfile retains uploaded navigation files on disk so the service
// can repopulate its catalog after a restart without waiting for a new
// upload.
package navfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	filePrefix = "nav_"
	fileSuffix = ".n"
)

// Cache manages navigation files in a directory, keeping at most maxFiles
// of them.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache rooted at dir. maxFiles below 1 defaults to 3.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles < 1 {
		maxFiles = 3
	}
	return &Cache{dir: dir, maxFiles: maxFiles}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Write stores contents under a timestamped name and prunes files beyond
// the retention limit.
func (c *Cache) Write(contents []byte, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating nav cache dir: %w", err)
	}

	name := fmt.Sprintf("%s%d%s", filePrefix, ts.Unix(), fileSuffix)
	if err := os.WriteFile(filepath.Join(c.dir, name), contents, 0644); err != nil {
		return fmt.Errorf("writing nav file: %w", err)
	}
	return c.prune()
}

// LoadLatest returns the newest retained navigation file and the time it
// was stored.
func (c *Cache) LoadLatest() ([]byte, time.Time, error) {
	names, times, err := c.list()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(names) == 0 {
		return nil, time.Time{}, fmt.Errorf("no navigation files retained in %s", c.dir)
	}

	newest := len(names) - 1
	data, err := os.ReadFile(filepath.Join(c.dir, names[newest]))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading nav file: %w", err)
	}
	return data, times[newest], nil
}

// list returns retained file names and their timestamps, oldest first.
func (c *Cache) list() ([]string, []time.Time, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("listing nav cache dir: %w", err)
	}

	type stamped struct {
		name string
		ts   time.Time
	}
	var files []stamped
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, stamped{name: name, ts: time.Unix(unix, 0)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ts.Before(files[j].ts) })

	names := make([]string, len(files))
	times := make([]time.Time, len(files))
	for i, f := range files {
		names[i] = f.name
		times[i] = f.ts
	}
	return names, times, nil
}

func (c *Cache) prune() error {
	names, _, err := c.list()
	if err != nil {
		return err
	}
	for len(names) > c.maxFiles {
		if err := os.Remove(filepath.Join(c.dir, names[0])); err != nil {
			return fmt.Errorf("pruning nav file %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}
