package inbox

import (
	"context"
	"sync"

	"expensetracker/pkg/logging"
)

// Stats counts outcomes of a run.
type Stats struct {
	Created int
	Skipped int
	Failed  int
	Errors  int
}

func (s *Stats) add(o Outcome, err error) {
	if err != nil {
		s.Errors++
		return
	}
	switch o {
	case Created:
		s.Created++
	case Failed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Scan processes every image currently in the inbox directory.
func (p *Processor) Scan(ctx context.Context) (Stats, error) {
	files, err := ListImages(p.cfg.Dir)
	if err != nil {
		return Stats{}, err
	}
	p.log.InfoContext(ctx, "scanning inbox", "dir", p.cfg.Dir, "files", len(files), "workers", p.cfg.Workers)
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return p.run(ctx, ch), ctx.Err()
}

// run drains names with the worker pool until names is closed.
func (p *Processor) run(ctx context.Context, names <-chan string) Stats {
	var (
		mu    sync.Mutex
		stats Stats
		wg    sync.WaitGroup
	)
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range names {
				if ctx.Err() != nil {
					continue
				}
				o, err := p.Process(ctx, name)
				if err != nil {
					p.log.ErrorContext(ctx, "process receipt", logging.FieldFile, name, logging.FieldError, err)
				}
				mu.Lock()
				stats.add(o, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return stats
}
