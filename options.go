package pgentity

import "time"

type options struct {
	logger        Logger
	metrics       Metrics
	auditHook     AuditHook
	clock         func() time.Time
	logMode       LogMode
	slowThreshold time.Duration
	maskParams    bool
}

type Option func(*options)

func defaultOptions() options {
	return options{
		logger:  NoopLogger{},
		metrics: NoopMetrics{},
		clock:   time.Now,
		logMode: LogWarn,
	}
}

// WithLogger sets the statement logger. A nil logger keeps the current one.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. A nil sink keeps the current one.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithAuditHook(h AuditHook) Option { return func(o *options) { o.auditHook = h } }
func WithLogMode(mode LogMode) Option  { return func(o *options) { o.logMode = mode } }

// WithLogParameterMasking logs statements with $n placeholders instead of inlined values.
func WithLogParameterMasking(on bool) Option { return func(o *options) { o.maskParams = on } }

// WithSlowQueryThreshold logs statements slower than d at warn level. Zero disables it.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// WithClock overrides the source of last_updated_time on update. Values are converted to UTC.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
