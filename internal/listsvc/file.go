package listsvc

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// fileSnapshot is one immutable load of every watched list file, keyed by
// list id (the file's base name without extension). Readers during a reload
// see this old snapshot until the atomic pointer swap completes (spec §4.7:
// "reads during a reload see the old snapshot until atomic swap").
type fileSnapshot struct {
	lists map[string]map[string]struct{}
}

// FileBackend loads one hash-set per file under dir on start and optionally
// watches for changes via fsnotify, triggering an atomic reload (spec §4.7).
// It does not support Add/Remove — file lists are operator-managed text
// files, not a write API; requests to mutate return ErrReadOnly.
type FileBackend struct {
	dir      string
	snapshot atomic.Pointer[fileSnapshot]
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	done     chan struct{}
}

// ErrReadOnly is returned by Add/Remove on a file-backed list.
var ErrReadOnly = fileBackendError("listsvc: file backend is read-only")

type fileBackendError string

func (e fileBackendError) Error() string { return string(e) }

// NewFileBackend loads every *.txt file in dir as a newline-delimited list
// named after its base filename, and starts an fsnotify watch on dir so
// edits trigger an atomic reload.
func NewFileBackend(dir string, log *zap.Logger) (*FileBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fb := &FileBackend{dir: dir, log: log, done: make(chan struct{})}
	snap, err := loadSnapshot(dir)
	if err != nil {
		return nil, err
	}
	fb.snapshot.Store(snap)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	fb.watcher = watcher
	go fb.watchLoop()
	return fb, nil
}

func loadSnapshot(dir string) (*fileSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	snap := &fileSnapshot{lists: map[string]map[string]struct{}{}}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		listID := entry.Name()[:len(entry.Name())-len(filepath.Ext(entry.Name()))]
		set, err := readLines(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		snap.lists[listID] = set
	}
	return snap, nil
}

func readLines(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	set := map[string]struct{}{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	return set, scanner.Err()
}

func (fb *FileBackend) watchLoop() {
	for {
		select {
		case <-fb.done:
			return
		case event, ok := <-fb.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			snap, err := loadSnapshot(fb.dir)
			if err != nil {
				fb.log.Warn("listsvc: reload failed, keeping previous snapshot", zap.Error(err))
				continue
			}
			fb.snapshot.Store(snap)
			fb.log.Info("listsvc: reloaded file backend snapshot", zap.String("dir", fb.dir))
		case err, ok := <-fb.watcher.Errors:
			if !ok {
				return
			}
			fb.log.Warn("listsvc: fsnotify error", zap.Error(err))
		}
	}
}

func (fb *FileBackend) Contains(_ context.Context, listID, v string) (bool, error) {
	snap := fb.snapshot.Load()
	set, ok := snap.lists[listID]
	if !ok {
		return false, nil
	}
	_, found := set[v]
	return found, nil
}

func (fb *FileBackend) Add(_ context.Context, _, _ string) error    { return ErrReadOnly }
func (fb *FileBackend) Remove(_ context.Context, _, _ string) error { return ErrReadOnly }

func (fb *FileBackend) GetAll(_ context.Context, listID string) ([]string, error) {
	snap := fb.snapshot.Load()
	set, ok := snap.lists[listID]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out, nil
}

func (fb *FileBackend) Close() error {
	close(fb.done)
	if fb.watcher != nil {
		return fb.watcher.Close()
	}
	return nil
}
