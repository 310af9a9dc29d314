package sitemap

import (
	"context"

	"github.com/rs/zerolog"

	"blog_backend/store"
)

// Worker regenerates the sitemap in the background. Submissions that arrive
// while a run is pending collapse into one; failures are logged and dropped.
type Worker struct {
	gen   *Generator
	queue chan struct{}
	log   *zerolog.Logger
	done  func(error)
}

func NewWorker(gen *Generator, logger *zerolog.Logger) *Worker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Worker{gen: gen, queue: make(chan struct{}, 1), log: logger}
}

// Submit 请求重新生成，不阻塞。
func (w *Worker) Submit() {
	select {
	case w.queue <- struct{}{}:
	default:
	}
}

// PostSaved is a store hook: only indexable posts trigger a rebuild.
func (w *Worker) PostSaved(p store.Post) {
	if p.IsIndexable {
		w.Submit()
	}
}

// Run processes submissions until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.queue:
			path, err := w.gen.Write(ctx, "")
			if err != nil {
				w.log.Warn().Err(err).Msg("sitemap regeneration failed")
			} else {
				w.log.Debug().Str("path", path).Msg("sitemap regenerated")
			}
			if w.done != nil {
				w.done(err)
			}
		}
	}
}
