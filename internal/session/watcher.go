package session

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"zxpaint/internal/logging"
)

var ErrWatcherClosed = errors.New("session: watcher closed")

// OwnWriteQuiet is how long changes are ignored after MarkOwnWrite.
const OwnWriteQuiet = 2 * time.Second

// Watcher reports changes to the open file made by other programs. It
// watches the parent directory so atomic replace-by-rename saves are seen.
// Changes are delivered on a buffered channel the UI polls each tick.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	target   string
	ownUntil time.Time

	changes chan string
	closeCh chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fsw,
		changes: make(chan string, 8),
		closeCh: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch switches the watched file to path. An empty path stops watching.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	var abs string
	if path != "" {
		var err error
		if abs, err = filepath.Abs(path); err != nil {
			return err
		}
	}
	dir := ""
	if abs != "" {
		dir = filepath.Dir(abs)
	}
	if dir != w.dir {
		if w.dir != "" {
			_ = w.watcher.Remove(w.dir)
		}
		if dir != "" {
			if err := w.watcher.Add(dir); err != nil {
				w.dir, w.target = "", ""
				return err
			}
		}
		w.dir = dir
	}
	w.target = abs
	return nil
}

// MarkOwnWrite suppresses change reports caused by the editor's own save.
func (w *Watcher) MarkOwnWrite() {
	w.mu.Lock()
	w.ownUntil = time.Now().Add(OwnWriteQuiet)
	w.mu.Unlock()
}

// Changes delivers the path of the watched file each time it changes.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.changes)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if path, ok := w.accept(ev, time.Now()); ok {
				select {
				case w.changes <- path:
				default:
					// a change is already pending
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Logger().Warn("file watcher", "err", err)
		}
	}
}

func (w *Watcher) accept(ev fsnotify.Event, now time.Time) (string, bool) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return "", false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.target == "" || filepath.Clean(ev.Name) != w.target {
		return "", false
	}
	if now.Before(w.ownUntil) {
		return "", false
	}
	return w.target, true
}
