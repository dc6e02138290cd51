package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher 监听单个数据文件，变化后防抖回调
//
// 监听的是所在目录而不是文件本身，编辑器"写临时文件再改名"的保存方式也能捕获
type FileWatcher struct {
	path        string
	onChange    func(path string) error
	onError     func(err error)
	watcher     *fsnotify.Watcher
	reloadDelay time.Duration
	mu          sync.Mutex
	timer       *time.Timer
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewFileWatcher 创建监听器
func NewFileWatcher(path string, onChange func(path string) error) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		path:        abs,
		onChange:    onChange,
		onError:     func(error) {},
		watcher:     watcher,
		reloadDelay: 200 * time.Millisecond,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// SetReloadDelay 防抖间隔
func (fw *FileWatcher) SetReloadDelay(d time.Duration) {
	fw.reloadDelay = d
}

// OnError 回调或监听出错时通知
func (fw *FileWatcher) OnError(fn func(err error)) {
	fw.onError = fn
}

// Start 启动监听
func (fw *FileWatcher) Start() error {
	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fw.path, err)
	}
	go fw.watchLoop()
	return nil
}

// Stop 停止监听
func (fw *FileWatcher) Stop() error {
	fw.cancel()
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop() {
	for {
		select {
		case <-fw.ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFileEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.onError(err)
		}
	}
}

// handleFileEvent 只关心目标文件的写入、创建与改名
func (fw *FileWatcher) handleFileEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != fw.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.reloadDelay, func() {
		if fw.ctx.Err() != nil {
			return
		}
		if err := fw.onChange(fw.path); err != nil {
			fw.onError(err)
		}
	})
}
