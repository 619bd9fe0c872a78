package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jwebster45206/perec-verify/integration/runner"
	"github.com/jwebster45206/perec-verify/internal/config"
	"github.com/jwebster45206/perec-verify/pkg/storage"
)

// Launcher starts one Chrome tab per run, either in a local headless
// process or on a remote DevTools endpoint.
type Launcher struct {
	ChromeURL    string // empty launches a local browser
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

var _ runner.Launcher = (*Launcher)(nil)

// NewLauncher creates a launcher from the harness configuration
func NewLauncher(cfg *config.Config) *Launcher {
	return &Launcher{
		ChromeURL:    cfg.ChromeURL,
		Headless:     cfg.Headless,
		WindowWidth:  1280,
		WindowHeight: 960,
	}
}

func (l *Launcher) allocator() (context.Context, context.CancelFunc) {
	if l.ChromeURL != "" {
		return chromedp.NewRemoteAllocator(context.Background(), l.ChromeURL)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(l.WindowWidth, l.WindowHeight),
	)
	return chromedp.NewExecAllocator(context.Background(), opts...)
}

// Launch starts the browser and opens a blank tab. The session is not tied
// to ctx; it lives until Close. ctx only bounds the startup.
func (l *Launcher) Launch(ctx context.Context, logger *slog.Logger) (runner.Session, error) {
	allocCtx, allocCancel := l.allocator()
	browserCtx, _ := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chromedp error: " + fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		logger:      logger,
	}
	s.page = &Page{s: s}
	s.store = &LocalStore{s: s}
	s.listenConsole()

	// The first Run allocates the browser and must use the tab context
	// itself, or the browser dies with the derived context.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			allocCancel()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		allocCancel()
		return nil, fmt.Errorf("browser startup aborted: %w", ctx.Err())
	}

	remote := "local"
	if l.ChromeURL != "" {
		remote = l.ChromeURL
	}
	logger.Info("Browser session started", "browser", remote, "headless", l.Headless)
	return s, nil
}

// Session is a single browser tab. All page and store operations run on
// the tab context, bounded by the caller's deadline.
type Session struct {
	allocCancel context.CancelFunc
	browserCtx  context.Context
	logger      *slog.Logger

	page  *Page
	store *LocalStore

	consoleErrors atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

var _ runner.Session = (*Session)(nil)

func (s *Session) Page() runner.Page    { return s.page }
func (s *Session) Store() storage.Store { return s.store }

// ConsoleErrors is the number of console errors and uncaught exceptions
// observed so far.
func (s *Session) ConsoleErrors() int64 {
	return s.consoleErrors.Load()
}

// Close closes the tab and shuts the browser down. It is safe to call more
// than once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.browserCtx)
		s.allocCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
		s.logger.Info("Browser session closed", "console_errors", s.ConsoleErrors())
	})
	return s.closeErr
}

func (s *Session) listenConsole() {
	chromedp.ListenTarget(s.browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if e.Type != runtime.APITypeError && e.Type != runtime.APITypeAssert {
				return
			}
			var args []string
			for _, arg := range e.Args {
				switch {
				case arg.Value != nil:
					args = append(args, string(arg.Value))
				case arg.Description != "":
					args = append(args, arg.Description)
				}
			}
			s.consoleErrors.Add(1)
			s.logger.Warn("Browser console error", "type", e.Type, "text", strings.Join(args, " "))
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails == nil {
				return
			}
			text := e.ExceptionDetails.Text
			if exc := e.ExceptionDetails.Exception; exc != nil && exc.Description != "" {
				text = exc.Description
			}
			s.consoleErrors.Add(1)
			s.logger.Warn("Uncaught exception in page", "text", text)
		}
	})
}

// bind derives a tab context that carries ctx's deadline and is cancelled
// with ctx.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.browserCtx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		inner := cancel
		cancel = func() { cancelDeadline(); inner() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.bind(ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}
