package inbox

import (
	"context"
	"path/filepath"
	"time"

	"expensetracker/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// Watch processes images as they appear in the inbox directory until ctx is
// done. A file is queued once it has seen no events for the debounce period,
// so partially copied files are not read.
func (p *Processor) Watch(ctx context.Context) (Stats, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Stats{}, err
	}
	defer w.Close()
	if err := w.Add(p.cfg.Dir); err != nil {
		return Stats{}, err
	}
	p.log.InfoContext(ctx, "watching inbox", "dir", p.cfg.Dir)

	names := make(chan string, 256)
	go p.debounce(ctx, w, names)
	return p.run(ctx, names), nil
}

func (p *Processor) debounce(ctx context.Context, w *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	pending := map[string]time.Time{}
	ticker := time.NewTicker(p.cfg.Debounce / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if isSupported(name) {
				pending[name] = time.Now()
			}
		case now := <-ticker.C:
			for name, t := range pending {
				if now.Sub(t) < p.cfg.Debounce {
					continue
				}
				delete(pending, name)
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.log.WarnContext(ctx, "watch error", logging.FieldError, err)
		}
	}
}
