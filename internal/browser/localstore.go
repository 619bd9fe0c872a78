package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/jwebster45206/perec-verify/pkg/storage"
)

// LocalStore is the page origin's localStorage. Values are passed as string
// literals, so any byte sequence the client could store round-trips.
type LocalStore struct {
	s *Session
}

var _ storage.Store = (*LocalStore)(nil)

func (l *LocalStore) Write(ctx context.Context, key, value string) error {
	if err := l.s.run(ctx, chromedp.Evaluate(storageWriteScript(key, value), nil)); err != nil {
		return fmt.Errorf("failed to write localStorage key %s: %w", key, err)
	}
	l.s.logger.Debug("Wrote localStorage", "key", key, "bytes", len(value))
	return nil
}

func (l *LocalStore) Clear(ctx context.Context) error {
	if err := l.s.run(ctx, chromedp.Evaluate(storageClearScript, nil)); err != nil {
		return fmt.Errorf("failed to clear localStorage: %w", err)
	}
	return nil
}

func (l *LocalStore) Read(ctx context.Context, key string) (string, bool, error) {
	var res readResult
	if err := l.s.run(ctx, chromedp.Evaluate(storageReadScript(key), &res)); err != nil {
		return "", false, fmt.Errorf("failed to read localStorage key %s: %w", key, err)
	}
	return res.Value, res.Found, nil
}
