package spin

import "github.com/rs/zerolog"

// schedulerOptions holds configuration applied at NewScheduler time.
type schedulerOptions struct {
	logger zerolog.Logger
}

// Option configures a Scheduler at construction, the same
// loopOptionImpl-style functional-option shape the teacher's
// eventloop.LoopOption uses.
type Option interface {
	applyScheduler(*schedulerOptions)
}

type optionFunc func(*schedulerOptions)

func (f optionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithLogger attaches a zerolog.Logger the Scheduler uses for its own
// diagnostic events (monitor wait errors, interrupt failures). The
// default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return optionFunc(func(o *schedulerOptions) {
		o.logger = logger
	})
}

func resolveOptions(opts []Option) *schedulerOptions {
	cfg := &schedulerOptions{logger: defaultLogger}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyScheduler(cfg)
	}
	return cfg
}
