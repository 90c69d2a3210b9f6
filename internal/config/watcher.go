// file: internal/config/watcher.go
package config

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/dkoosis/mcpclient/internal/mcperror"
)

// Watcher watches a YAML config file and pushes freshly reloaded
// Settings on Changes() whenever the file is written. A parse failure
// on reload is logged and skipped — the previous Settings stay live —
// rather than tearing down the watcher.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	changes chan *Settings
	done    chan struct{}
}

// NewWatcher starts watching path immediately.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, mcperror.ErrorWithDetails(
			errors.Wrap(err, "failed to create config file watcher"),
			mcperror.CategoryConfig, mcperror.CodeInternalError, nil,
		)
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}

	if err := fw.Add(filepath.Dir(expanded)); err != nil {
		_ = fw.Close()
		return nil, mcperror.ErrorWithDetails(
			errors.Wrapf(err, "failed to watch config directory for %s", expanded),
			mcperror.CategoryConfig, mcperror.CodeInternalError, nil,
		)
	}

	w := &Watcher{
		path:    expanded,
		watcher: fw,
		changes: make(chan *Settings, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes returns the channel of reloaded Settings.
func (w *Watcher) Changes() <-chan *Settings {
	return w.changes
}

// Close stops watching and releases the fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.changes)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path || (event.Op&(fsnotify.Write|fsnotify.Create) == 0) {
				continue
			}
			settings, err := Load(w.path)
			if err != nil {
				logger.Warn("config reload failed, keeping previous settings", "error", err)
				continue
			}
			select {
			case w.changes <- settings:
			default:
				// Drop a stale pending reload in favor of the newest one.
				select {
				case <-w.changes:
				default:
				}
				w.changes <- settings
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
