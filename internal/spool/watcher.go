package spool

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/promptdb/internal/storage"
)

// settleDelay is how long the spool must stay quiet before a drain runs,
// so a file still being written is not picked up half-done.
const settleDelay = 150 * time.Millisecond

// Watch drains the spool once, then watches root (not its subdirectories)
// and drains again after each burst of create, write or rename events.
// It returns when ctx is cancelled.
func (p *Processor) Watch(ctx context.Context, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	p.logger.Info("spool: watching", slog.String("root", root))

	if n, err := p.Drain(ctx); err != nil {
		p.logger.Warn("spool: initial drain failed", slog.String("error", err.Error()))
	} else if n > 0 {
		p.logger.Info("spool: initial drain", slog.Int("files", n))
	}

	var drainTimer *time.Timer
	var drainCh <-chan time.Time
	scheduleDrain := func() {
		if drainTimer == nil {
			drainTimer = time.NewTimer(settleDelay)
			drainCh = drainTimer.C
		} else {
			drainTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if drainTimer != nil {
				drainTimer.Stop()
			}
			p.logger.Info("spool: stopped")
			return nil

		case <-drainCh:
			if _, err := p.Drain(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("spool: drain failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !storage.IsRequestFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleDrain()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("spool: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
