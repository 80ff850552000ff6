// Package watch reruns the cron generator when a crontab source changes.
package watch

import (
	"context"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"crongen/pkg/logx"
)

// Reloader applies changed sources, usually by reloading systemd.
type Reloader interface {
	Reload(ctx context.Context) error
}

type Options struct {
	// Paths are the watched sources: crontab files and the directories
	// holding them. Missing paths are fine; they are picked up once created.
	Paths []string
	// Debounce collapses bursts of events (editors, package managers).
	Debounce time.Duration
	// MinInterval is the minimum time between two reloads.
	MinInterval time.Duration
}

// Watcher triggers a reload when the content of the sources changes.
type Watcher struct {
	opts     Options
	reloader Reloader
	log      logx.Logger
	limiter  *rate.Limiter

	// reloadMu serializes Trigger.
	reloadMu sync.Mutex
	// lastHash is the snapshot of the last successful reload.
	lastHash uint64
}

func New(opts Options, r Reloader, log logx.Logger) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 250 * time.Millisecond
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Watcher{
		opts:     opts,
		reloader: r,
		log:      log,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Snapshot hashes the names and contents of every source file.
func (w *Watcher) Snapshot() uint64 {
	h := fnv.New64a()
	paths := slices.Clone(w.opts.Paths)
	slices.Sort(paths)
	for _, p := range paths {
		fi, err := os.Stat(p)
		switch {
		case err != nil:
			h.Write([]byte("!" + p + "\x00"))
		case fi.IsDir():
			entries, _ := os.ReadDir(p)
			for _, e := range entries {
				if !e.IsDir() {
					hashFile(h, filepath.Join(p, e.Name()))
				}
			}
		default:
			hashFile(h, p)
		}
	}
	return h.Sum64()
}

func hashFile(h interface{ Write([]byte) (int, error) }, path string) {
	h.Write([]byte(path + "\x00"))
	b, err := os.ReadFile(path)
	if err != nil {
		h.Write([]byte("!\x00"))
		return
	}
	h.Write(b)
	h.Write([]byte{0})
}

// Prime records the current sources as already applied.
func (w *Watcher) Prime() {
	w.reloadMu.Lock()
	w.lastHash = w.Snapshot()
	w.reloadMu.Unlock()
}

// Trigger reloads when the sources differ from the last reload. It reports
// whether a reload happened.
func (w *Watcher) Trigger(ctx context.Context) (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	h := w.Snapshot()
	if h == w.lastHash {
		w.log.Debug("crontabs unchanged; skipping reload")
		return false, nil
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return false, err
	}
	if err := w.reloader.Reload(ctx); err != nil {
		return false, err
	}
	w.lastHash = h
	return true, nil
}

// dirs returns the directories to subscribe to: every existing source
// directory and the parent of every source.
func (w *Watcher) dirs() []string {
	var out []string
	for _, p := range w.opts.Paths {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			out = append(out, p)
		}
		out = append(out, filepath.Dir(p))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// relevant reports whether an event touches a source.
func (w *Watcher) relevant(name string) bool {
	for _, p := range w.opts.Paths {
		if name == p || filepath.Dir(name) == p {
			return true
		}
	}
	return false
}

// Run watches until ctx ends. A broken fsnotify watcher is recreated with
// a jittered exponential backoff.
func (w *Watcher) Run(ctx context.Context) error {
	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		backoff = min(backoff*2, restartBackoffMax)
		return wait
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.opts.Debounce, func() {
			reloaded, err := w.Trigger(ctx)
			switch {
			case err != nil && ctx.Err() == nil:
				w.log.Warn("reload failed", logx.Err(err))
			case reloaded:
				w.log.Info("crontabs changed; cron units regenerated")
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.log.Warn("watch init failed", logx.Err(err))
			if !sleep(ctx, nextWait()) {
				return nil
			}
			continue
		}
		watched := 0
		for _, dir := range w.dirs() {
			if err := fw.Add(dir); err != nil {
				w.log.Debug("cannot watch directory", logx.String("dir", dir), logx.Err(err))
				continue
			}
			watched++
		}
		if watched == 0 {
			_ = fw.Close()
			w.log.Warn("no crontab directory can be watched")
			if !sleep(ctx, nextWait()) {
				return nil
			}
			continue
		}

		// healthy again
		backoff = restartBackoffBase
		w.log.Debug("watcher started", logx.Int("dirs", watched))
		// a source directory created while we were down
		debounce()

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if !w.relevant(ev.Name) {
					continue
				}
				if ev.Op&fsnotify.Create != 0 && slices.Contains(w.opts.Paths, ev.Name) && isDir(ev.Name) {
					// a source directory appeared; subscribe to it too
					if err := fw.Add(ev.Name); err != nil {
						w.log.Warn("cannot watch directory", logx.String("dir", ev.Name), logx.Err(err))
					}
				}
				debounce()
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// events were dropped; rescan instead of trusting the queue
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("watch overflow; forcing reload", logx.Err(err))
					debounce()
					continue
				}
				w.log.Warn("watch error", logx.Err(err))
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		wait := nextWait()
		w.log.Debug("watcher restarting", logx.Duration("backoff", wait))
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
