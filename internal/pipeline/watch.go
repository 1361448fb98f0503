package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// artefactWatcher logs wheels as the build drops them into the artefact
// directory, giving long builds a visible heartbeat. It is best-effort:
// failure to establish the watch is logged and the build proceeds without it.
type artefactWatcher struct {
	dir     string
	log     *zap.Logger
	watcher *fsnotify.Watcher
	doneCh  chan struct{}
}

func newArtefactWatcher(dir string, log *zap.Logger) *artefactWatcher {
	return &artefactWatcher{dir: dir, log: log}
}

func (w *artefactWatcher) start() {
	// The artefact directory usually does not exist until the build script
	// creates it; create it up front so the watch can be established.
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Warn("artefact watch unavailable", zap.Error(err))
		return
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("artefact watch unavailable", zap.Error(err))
		return
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		w.log.Warn("artefact watch unavailable", zap.Error(err))
		return
	}

	w.watcher = fw
	w.doneCh = make(chan struct{})
	go w.run()
}

func (w *artefactWatcher) run() {
	defer close(w.doneCh)

	seen := make(map[string]struct{})
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".whl") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, dup := seen[ev.Name]; dup {
				continue
			}
			seen[ev.Name] = struct{}{}
			w.log.Info("wheel produced", zap.String("wheel", filepath.Base(ev.Name)))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("artefact watch error", zap.Error(err))
		}
	}
}

// stop closes the watch and waits for the event loop to drain.
func (w *artefactWatcher) stop() {
	if w.watcher == nil {
		return
	}
	_ = w.watcher.Close()
	<-w.doneCh
}
