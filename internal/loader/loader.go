package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/composer/internal/catalog"
)

// maxFetchBytes caps a single catalog asset download.
const maxFetchBytes = 32 << 20

type logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// Fetcher retrieves the raw bytes behind a catalog source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// SourceFetcher reads http(s) URLs with Client and everything else from disk.
type SourceFetcher struct {
	Client *http.Client
}

func (f SourceFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if !catalog.IsRemote(source) {
		return os.ReadFile(source)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchStatusError{Source: source, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("%s: %w", source, ErrTooLarge)
	}
	return data, nil
}

type FetchStatusError struct {
	Source     string
	StatusCode int
}

func (e *FetchStatusError) Error() string {
	return "fetch " + e.Source + ": unexpected status " + strconv.Itoa(e.StatusCode)
}

var ErrUnknownUpload = errors.New("upload not found")

const uploadPrefix = "upload:"

// Loader resolves sources to decoded images. Successful decodes are cached;
// failures are not, so the next render retries.
type Loader struct {
	Fetcher Fetcher
	Logger  logger

	mu      sync.RWMutex
	cache   map[string]image.Image
	uploads atomic.Uint64
}

func New(fetcher Fetcher) *Loader {
	if fetcher == nil {
		fetcher = SourceFetcher{}
	}
	return &Loader{Fetcher: fetcher, Logger: noopLogger{}, cache: make(map[string]image.Image)}
}

// Load returns the decoded image for source. It is safe for concurrent use.
func (l *Loader) Load(ctx context.Context, source string) (image.Image, error) {
	if img, ok := l.cached(source); ok {
		return img, nil
	}
	if IsUpload(source) {
		return nil, fmt.Errorf("%s: %w", source, ErrUnknownUpload)
	}

	start := time.Now()
	data, err := l.Fetcher.Fetch(ctx, source)
	if err != nil {
		l.log().Errorf("loader", "fetch %s failed: %v", source, err)
		return nil, err
	}
	img, mimeType, err := Decode(data)
	if err != nil {
		l.log().Errorf("loader", "decode %s failed: %v", source, err)
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	l.store(source, img)
	l.log().Infof("loader", "loaded %s (%s, %dx%d) in %s", source, mimeType, img.Bounds().Dx(), img.Bounds().Dy(), time.Since(start).Round(time.Millisecond))
	return img, nil
}

// AddUpload registers a decoded character image and returns its source id.
func (l *Loader) AddUpload(img image.Image) string {
	source := uploadPrefix + strconv.FormatUint(l.uploads.Add(1), 10)
	l.store(source, img)
	return source
}

// Forget drops source from the cache.
func (l *Loader) Forget(source string) {
	l.mu.Lock()
	delete(l.cache, source)
	l.mu.Unlock()
}

func IsUpload(source string) bool {
	return len(source) > len(uploadPrefix) && source[:len(uploadPrefix)] == uploadPrefix
}

func (l *Loader) cached(source string) (image.Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.cache[source]
	return img, ok
}

func (l *Loader) store(source string, img image.Image) {
	l.mu.Lock()
	if l.cache == nil {
		l.cache = make(map[string]image.Image)
	}
	l.cache[source] = img
	l.mu.Unlock()
}

func (l *Loader) log() logger {
	if l.Logger == nil {
		return noopLogger{}
	}
	return l.Logger
}
