package fcsio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/twinfer/fcs-plugin/pkg/fcs"
)

// Parser wraps fcs.Decoder with file opening, caching and summary export.
type Parser struct {
	cache      map[string]cacheEntry
	cacheMutex sync.RWMutex
	decoder    *fcs.Decoder
	logger     *slog.Logger
	options    options
}

type cacheEntry struct {
	doc      *fcs.Document
	modTime  time.Time
	size     int64
	storedAt time.Time
}

// options holds configuration for the parser
type options struct {
	logger        *slog.Logger
	enableCaching bool
	cacheTimeout  time.Duration
	debugMode     bool
	summary       SummaryOptions
}

// Option is a function that configures parser options
type Option func(*options)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCaching enables document caching for ParseFile with the specified
// timeout. A zero timeout keeps entries until the file changes.
func WithCaching(timeout time.Duration) Option {
	return func(o *options) {
		o.enableCaching = true
		o.cacheTimeout = timeout
	}
}

// WithoutCaching disables the document cache.
func WithoutCaching() Option {
	return func(o *options) {
		o.enableCaching = false
	}
}

// WithDebugMode enables debug logging
func WithDebugMode(enabled bool) Option {
	return func(o *options) {
		o.debugMode = enabled
	}
}

// WithEvents includes event values in summaries.
func WithEvents(enabled bool) Option {
	return func(o *options) {
		o.summary.IncludeEvents = enabled
	}
}

// WithMaxEvents caps the events copied into summaries and implies WithEvents.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		o.summary.IncludeEvents = true
		o.summary.MaxEvents = n
	}
}

// WithDigest adds a BLAKE3 digest of the DATA values to summaries.
func WithDigest(enabled bool) Option {
	return func(o *options) {
		o.summary.Digest = enabled
	}
}

// defaultOptions returns the default configuration
func defaultOptions() options {
	return options{
		logger:        slog.Default(),
		enableCaching: true,
		cacheTimeout:  5 * time.Minute,
	}
}

// Global parser instance for convenience functions
var globalParser *Parser
var globalParserOnce sync.Once

// getGlobalParser returns a singleton parser instance
func getGlobalParser() *Parser {
	globalParserOnce.Do(func() {
		globalParser = NewParser()
	})
	return globalParser
}

// NewParser creates a new parser instance with the given options
func NewParser(opts ...Option) *Parser {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.debugMode {
		options.logger = options.logger.With("debug", true)
	}

	return &Parser{
		cache:   make(map[string]cacheEntry),
		decoder: fcs.NewDecoder(options.logger),
		logger:  options.logger,
		options: options,
	}
}

// ParseFile parses the FCS file at path with the global parser.
func ParseFile(ctx context.Context, path string) (*fcs.Document, error) {
	return getGlobalParser().ParseFile(ctx, path)
}

// ParseBytes parses an in-memory FCS payload with the global parser.
func ParseBytes(ctx context.Context, payload []byte) (*fcs.Document, error) {
	return getGlobalParser().ParseBytes(ctx, payload)
}

// SummarizeFile parses path and returns its summary with the global parser.
func SummarizeFile(ctx context.Context, path string) (*Summary, error) {
	return getGlobalParser().SummarizeFile(ctx, path)
}

// ParseFile opens and parses path. With caching enabled, a document is
// reused while the file's size and modification time are unchanged and the
// entry has not expired.
func (p *Parser) ParseFile(ctx context.Context, path string) (*fcs.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if doc, ok := p.cached(path, info); ok {
		p.logger.DebugContext(ctx, "Using cached document", "path", path)
		return doc, nil
	}

	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	p.logger.DebugContext(ctx, "Parsing FCS file", "path", path, "compression", src.Compression.String())
	doc, err := p.decoder.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if p.options.enableCaching {
		p.cacheMutex.Lock()
		p.cache[path] = cacheEntry{doc: doc, modTime: info.ModTime(), size: info.Size(), storedAt: time.Now()}
		p.cacheMutex.Unlock()
	}
	return doc, nil
}

func (p *Parser) cached(path string, info os.FileInfo) (*fcs.Document, bool) {
	if !p.options.enableCaching {
		return nil, false
	}
	p.cacheMutex.RLock()
	entry, exists := p.cache[path]
	p.cacheMutex.RUnlock()
	if !exists {
		return nil, false
	}
	if !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		return nil, false
	}
	if p.options.cacheTimeout > 0 && time.Since(entry.storedAt) > p.options.cacheTimeout {
		return nil, false
	}
	return entry.doc, true
}

// ParseBytes parses an in-memory payload, decompressing zstd or lz4 frames.
func (p *Parser) ParseBytes(ctx context.Context, payload []byte) (*fcs.Document, error) {
	src, err := OpenBytes(payload)
	if err != nil {
		return nil, err
	}
	return p.decoder.Parse(ctx, src)
}

// Summarize applies the parser's summary options to doc.
func (p *Parser) Summarize(doc *fcs.Document) (*Summary, error) {
	return Summarize(doc, p.options.summary)
}

// SummarizeFile parses path and summarizes the result.
func (p *Parser) SummarizeFile(ctx context.Context, path string) (*Summary, error) {
	doc, err := p.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	s, err := p.Summarize(doc)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", path, err)
	}
	s.Source = path
	return s, nil
}

// ClearCache drops every cached document.
func (p *Parser) ClearCache() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache = make(map[string]cacheEntry)
}
