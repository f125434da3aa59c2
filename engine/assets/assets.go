package assets

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/vkdemo/engine/core"
)

// ShaderWatcher reports writes to a fixed set of shader files. It watches the
// parent directories so files replaced by rename are still seen.
type ShaderWatcher struct {
	fsnotify *fsnotify.Watcher
	files    map[string]struct{}
	logger   core.Logger

	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup

	mutex    sync.Mutex
	isClosed bool
}

func NewShaderWatcher(logger core.Logger, paths ...string) (*ShaderWatcher, error) {
	if logger == nil {
		logger = core.NopLogger()
	}
	if len(paths) == 0 {
		return nil, errors.New("no shader files to watch")
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create shader watcher")
	}

	sw := &ShaderWatcher{
		fsnotify: fsWatch,
		files:    make(map[string]struct{}, len(paths)),
		logger:   logger,
		// One pending notification per file is enough, the reload reads every file.
		changes: make(chan string, len(paths)),
		done:    make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsWatch.Close()
			return nil, err
		}
		sw.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatch.Add(dir); err != nil {
			fsWatch.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	sw.wg.Add(1)
	go sw.start()
	return sw, nil
}

// Changes delivers the path of every shader file that was created or written.
func (sw *ShaderWatcher) Changes() <-chan string {
	return sw.changes
}

func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	if sw.isClosed {
		sw.mutex.Unlock()
		return nil
	}
	sw.isClosed = true
	sw.mutex.Unlock()

	close(sw.done)
	sw.wg.Wait()
	return sw.fsnotify.Close()
}

func (sw *ShaderWatcher) start() {
	defer sw.wg.Done()
	defer close(sw.changes)
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			sw.handleFileEvent(e)

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			sw.logger.Error("shader watcher error", "err", err)

		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) handleFileEvent(e fsnotify.Event) {
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	abs, err := filepath.Abs(e.Name)
	if err != nil {
		return
	}
	if _, ok := sw.files[abs]; !ok {
		return
	}
	sw.logger.Debug("shader changed", "path", abs)
	select {
	case sw.changes <- abs:
	default:
		// A reload is already queued.
	}
}
