package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
)

// Pool manages a fixed set of headless Chrome instances. Each detection or
// authentication request acquires a fresh tab scoped to one request; the pool
// size bounds concurrent browser sessions.
type Pool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	slots            chan struct{}
	mu               sync.Mutex
	currentIndex     int
	initialized      bool
	config           common.BrowserConfig
	logger           arbor.ILogger
}

// NewPool creates and initializes a browser pool
func NewPool(config common.BrowserConfig, logger arbor.ILogger) (*Pool, error) {
	if config.MaxInstances <= 0 {
		return nil, fmt.Errorf("browser max_instances must be greater than 0, got %d", config.MaxInstances)
	}

	p := &Pool{
		config: config,
		logger: logger,
		slots:  make(chan struct{}, config.MaxInstances),
	}

	logger.Info().
		Int("pool_size", config.MaxInstances).
		Bool("headless", config.Headless).
		Str("user_agent", config.UserAgent).
		Msg("Initializing browser pool")

	var lastErr error
	for i := 0; i < config.MaxInstances; i++ {
		if err := p.createInstance(i); err != nil {
			lastErr = err
			p.logger.Warn().
				Err(err).
				Int("browser_index", i).
				Msg("Failed to create browser instance")
			continue
		}
		p.slots <- struct{}{}
	}

	if len(p.browsers) == 0 {
		p.cleanup()
		return nil, fmt.Errorf("failed to create any browser instances: %w", lastErr)
	}

	p.initialized = true
	p.logger.Info().
		Int("browsers_created", len(p.browsers)).
		Int("requested", config.MaxInstances).
		Msg("Browser pool initialized")

	return p, nil
}

func (p *Pool) createInstance(index int) error {
	startTime := time.Now()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", p.config.DisableGPU),
		chromedp.Flag("no-sandbox", p.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(p.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	// Startup test; a browser that cannot reach about:blank is unusable
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)

	p.logger.Debug().
		Int("browser_index", index).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created")

	return nil
}

// Acquire blocks until a pool slot is free, then returns a fresh tab context
// scoped to one request. The release function must be called on every exit
// path; it closes the tab and frees the slot.
func (p *Pool) Acquire(ctx context.Context) (context.Context, func(), error) {
	if !p.initialized {
		return nil, nil, fmt.Errorf("browser pool not initialized")
	}

	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("waiting for browser slot: %w", ctx.Err())
	}

	p.mu.Lock()
	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)
	browserCtx := p.browsers[index]
	p.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)

	var once sync.Once
	release := func() {
		once.Do(func() {
			tabCancel()
			p.slots <- struct{}{}
			p.logger.Debug().
				Int("browser_index", index).
				Msg("Browser tab released")
		})
	}

	return tabCtx, release, nil
}

// Close shuts down all browser instances
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	count := len(p.browsers)
	p.logger.Info().
		Int("browser_count", count).
		Msg("Shutting down browser pool")

	done := make(chan struct{})
	go func() {
		p.cleanup()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		p.logger.Warn().Msg("Browser pool shutdown timed out")
	}

	p.initialized = false
	return nil
}

func (p *Pool) cleanup() {
	for _, cancel := range p.browserCancels {
		if cancel != nil {
			cancel()
		}
	}
	for _, cancel := range p.allocatorCancels {
		if cancel != nil {
			cancel()
		}
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
}
