package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"datahunter/internal/collector/locate"
	"datahunter/pkg/log"
)

// DefaultReloadInterval is how often the selectors file is checked for changes.
const DefaultReloadInterval = 10 * time.Second

// SelectorFile serves selectors read from a YAML file and reloads them when
// the file changes. Missing entries fall back to the built-in selectors.
type SelectorFile struct {
	path string

	mu      sync.RWMutex
	current locate.Selectors
	modTime time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// LoadSelectors reads path and checks it for changes every interval until
// Close.
func LoadSelectors(path string, interval time.Duration) (*SelectorFile, error) {
	f := &SelectorFile{path: path, stop: make(chan struct{})}
	if err := f.reload(); err != nil {
		return nil, err
	}
	if interval > 0 {
		go f.watch(interval)
	}
	return f, nil
}

// Selectors returns the selectors in effect.
func (f *SelectorFile) Selectors() locate.Selectors {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Close stops watching the file.
func (f *SelectorFile) Close() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *SelectorFile) reload() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("stat selectors: %w", err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read selectors: %w", err)
	}

	var raw locate.Selectors
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse selectors %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.current = raw.WithDefaults()
	f.modTime = info.ModTime()
	f.mu.Unlock()
	return nil
}

// changed reports whether the file is newer than the loaded copy.
func (f *SelectorFile) changed() bool {
	info, err := os.Stat(f.path)
	if err != nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return info.ModTime().After(f.modTime)
}

func (f *SelectorFile) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			if !f.changed() {
				continue
			}
			if err := f.reload(); err != nil {
				log.GlobalWarn("selectors reload failed, keeping previous", "path", f.path, "error", err)
				continue
			}
			log.GlobalInfo("selectors reloaded", "path", f.path)
		}
	}
}
