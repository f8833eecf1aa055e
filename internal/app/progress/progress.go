package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type Config struct {
	Enabled bool
	Writer  io.Writer
}

// Manager owns the bar container. A disabled manager hands back the readers
// it is given.
type Manager struct {
	container *mpb.Progress
	enabled   bool
	mu        sync.Mutex
}

func NewManager(config Config) *Manager {
	if !config.Enabled {
		return &Manager{enabled: false}
	}

	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	container := mpb.New(
		mpb.WithOutput(writer),
		mpb.WithRefreshRate(120*time.Millisecond),
		mpb.WithWaitGroup(&sync.WaitGroup{}),
	)

	return &Manager{
		container: container,
		enabled:   true,
	}
}

// Enabled reports whether bars are rendered.
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled && m.container != nil
}

// TrackReader returns r wrapped so that reads advance a byte bar of the given
// size. Closing the returned reader aborts a bar that did not reach its total;
// it never closes r.
func (m *Manager) TrackReader(r io.Reader, size int64, description string) io.ReadCloser {
	if !m.Enabled() {
		return io.NopCloser(r)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bar := m.container.AddBar(size,
		mpb.PrependDecorators(
			decor.Name(description+" ", decor.WC{W: len(description) + 1, C: decor.DindentRight}),
			decor.Counters(decor.SizeB1024(0), "% .1f / % .1f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.NewPercentage("%.1f", decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncWidth), " ✓ ",
			),
		),
	)

	return &trackedReader{
		ReadCloser: bar.ProxyReader(struct{ io.Reader }{r}),
		bar:        bar,
	}
}

// Bar counts finished items. The zero Bar is a no-op.
type Bar struct {
	bar *mpb.Bar
}

// CreateBar adds an item counter with the given total.
func (m *Manager) CreateBar(total int, description string) *Bar {
	if !m.Enabled() {
		return &Bar{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bar := m.container.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(description+" ", decor.WC{W: len(description) + 1, C: decor.DindentRight}),
			decor.CountersNoUnit("(%d/%d)", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.NewPercentage("%.1f", decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncWidth), " ✓ ",
			),
		),
	)
	return &Bar{bar: bar}
}

func (b *Bar) Increment() {
	if b.bar != nil {
		b.bar.Increment()
	}
}

// Current is the number of items counted so far; 0 for a disabled bar.
func (b *Bar) Current() int64 {
	if b.bar == nil {
		return 0
	}
	return b.bar.Current()
}

func (m *Manager) Wait() {
	if m.Enabled() {
		m.container.Wait()
	}
}

func (m *Manager) Shutdown() {
	if m.Enabled() {
		m.container.Shutdown()
	}
}

type trackedReader struct {
	io.ReadCloser
	bar *mpb.Bar
}

func (t *trackedReader) Close() error {
	err := t.ReadCloser.Close()
	if !t.bar.Completed() {
		t.bar.Abort(false)
	}
	return err
}

func IsTTY(writer io.Writer) bool {
	if writer == nil {
		return false
	}

	if file, ok := writer.(*os.File); ok {
		stat, err := file.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func ShouldShowProgress(forced bool) bool {
	if forced {
		return true
	}

	return IsTTY(os.Stderr)
}
