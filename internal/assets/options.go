package assets

// DownloadOption configures a download operation.
type DownloadOption func(*downloadConfig)

type downloadConfig struct {
	force       bool
	concurrency int
	progressFn  func(Progress)
}

func newDownloadConfig() *downloadConfig {
	return &downloadConfig{concurrency: DefaultConcurrency}
}

// WithForce re-downloads files that already exist locally.
func WithForce() DownloadOption {
	return func(c *downloadConfig) {
		c.force = true
	}
}

// WithConcurrency sets the number of concurrent downloads, clamped to
// [1, MaxConcurrency].
func WithConcurrency(n int) DownloadOption {
	return func(c *downloadConfig) {
		if n < 1 {
			n = 1
		}
		if n > MaxConcurrency {
			n = MaxConcurrency
		}
		c.concurrency = n
	}
}

// WithProgress sets a progress callback. It is invoked from download
// goroutines and must be safe for concurrent use.
func WithProgress(fn func(Progress)) DownloadOption {
	return func(c *downloadConfig) {
		c.progressFn = fn
	}
}
