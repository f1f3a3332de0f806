package health

import (
	"context"
	"errors"
	"fmt"
)

// StorageHealthCheck wraps a storage backend's Ping method (satisfied by
// both storage/memory.Store and storage/postgres.Store) as a CheckFunc.
func StorageHealthCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if ping == nil {
			return errors.New("storage backend not configured")
		}
		if err := ping(ctx); err != nil {
			return fmt.Errorf("storage ping failed: %w", err)
		}
		return nil
	}
}

// MailerHealthCheck wraps a synchronous, context-free readiness probe
// (e.g. confirming the mailer's SMTP host/from configuration is present)
// and cooperates with context cancellation around it.
func MailerHealthCheck(probe func() error) CheckFunc {
	return func(ctx context.Context) error {
		if probe == nil {
			return errors.New("mailer not configured")
		}

		done := make(chan error, 1)
		go func() { done <- probe() }()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ServiceHealthCheck wraps a probe against an external HTTP dependency,
// threading the configured URL through for logging/labeling.
func ServiceHealthCheck(url string, probe func(ctx context.Context, url string) error) CheckFunc {
	return func(ctx context.Context) error {
		if probe == nil {
			return fmt.Errorf("service check for %s not configured", url)
		}
		return probe(ctx, url)
	}
}
