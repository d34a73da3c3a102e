package service

import (
	"context"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// Option configures the optional collaborators shared by the services.
type Option func(*options)

type options struct {
	throttle ports.LoginThrottle
	audit    ports.AuditSink
	now      func() time.Time
}

// WithLoginThrottle enables failed-login throttling.
func WithLoginThrottle(t ports.LoginThrottle) Option {
	return func(o *options) {
		if t != nil {
			o.throttle = t
		}
	}
}

// WithAuditSink routes audit events to sink.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(o *options) {
		if sink != nil {
			o.audit = sink
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		throttle: noopThrottle{},
		audit:    noopAudit{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type noopThrottle struct{}

func (noopThrottle) Allow(context.Context, string) (bool, error) { return true, nil }
func (noopThrottle) Fail(context.Context, string) error          { return nil }
func (noopThrottle) Reset(context.Context, string) error         { return nil }

type noopAudit struct{}

func (noopAudit) Record(domain.AuditEvent) {}
