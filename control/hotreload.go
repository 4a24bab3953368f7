// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Reloads a config file into a ConfigStore whenever it changes on disk.

package control

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// reloadSettle lets editors finish writing before the file is read back.
const reloadSettle = 10 * time.Millisecond

// ReloadFile reads path over the store's current config and publishes the
// result. On error the store is left unchanged.
func ReloadFile(store *ConfigStore, path string) error {
	cfg, err := LoadFile(path, store.Config())
	if err != nil {
		return err
	}
	return store.Update(cfg)
}

// WatchConfigFile reloads path into store on every write, create or rename
// until ctx is cancelled. The containing directory is watched so that
// editors replacing the file by rename are followed.
func WatchConfigFile(ctx context.Context, store *ConfigStore, path string, log hclog.Logger) error {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("reload")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				drain(watcher.Events, target)
				if err := ReloadFile(store, path); err != nil {
					log.Warn("config reload failed", "path", path, "error", err)
					continue
				}
				log.Debug("config reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

// drain swallows the burst of events a single save produces.
func drain(events <-chan fsnotify.Event, target string) {
	for {
		time.Sleep(reloadSettle)
		select {
		case ev := <-events:
			if filepath.Clean(ev.Name) != target {
				return
			}
		default:
			return
		}
	}
}
