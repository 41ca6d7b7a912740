package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
	"github.com/diagimmo/suiviclientpro/internal/config"
	"github.com/diagimmo/suiviclientpro/internal/ddtscan"
	"github.com/diagimmo/suiviclientpro/internal/gmail"
	"github.com/diagimmo/suiviclientpro/internal/google"
	"github.com/diagimmo/suiviclientpro/internal/instrumentation"
	"github.com/diagimmo/suiviclientpro/internal/logging"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

// SourceOpener opens the record source. source.Open is the default.
type SourceOpener func(ctx context.Context, d source.Descriptor, opts ...source.Option) (*source.Source, error)

// MailboxFactory builds the message source scanned for DDT attachments.
type MailboxFactory func(ctx context.Context, paths config.Paths) (ddtscan.MessageSource, error)

// Options configures NewServerContext.
type Options struct {
	Paths  config.Paths
	Logger *slog.Logger
	// WriteBack enables the write-back of annotations to the record source, on top
	// of SUIVI_WRITE_BACK.
	WriteBack bool
}

// ServerContext holds everything an operation needs: the configuration, the
// annotation store, the record source opener and the Gmail client.
// Operations run one at a time.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	paths  config.Paths
	logger *slog.Logger

	mu sync.Mutex
	// fileCfg is the document as saved; cfg adds the environment overrides.
	fileCfg   config.Config
	cfg       config.Config
	writeBack bool

	store       *annotations.Store
	storeNotice error

	metrics    *instrumentation.Metrics
	openSource SourceOpener
	newMailbox MailboxFactory
	mailbox    ddtscan.MessageSource
	shutdown   bool
}

// NewServerContext loads the configuration and the annotation document.
//
// An unparseable configuration or annotation document is not fatal: the context
// starts from an empty one and StoreNotice reports the annotation diagnostic.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	paths := opts.Paths
	if paths == (config.Paths{}) {
		paths = config.ResolvePaths()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		paths:      paths,
		logger:     logger,
		writeBack:  opts.WriteBack,
		openSource: source.Open,
		newMailbox: gmailMailbox,
	}

	fileCfg, _, err := config.Load(paths.Config)
	if err != nil {
		logger.Warn("configuration unreadable, starting from an empty one",
			logging.Path(paths.Config), logging.Err(err))
	}
	if err := sc.applyConfig(fileCfg); err != nil {
		cancel()
		return nil, err
	}

	store, err := annotations.Open(paths.State, logger)
	if err != nil {
		if !errors.Is(err, annotations.ErrPersistenceDecode) {
			cancel()
			return nil, fmt.Errorf("failed to open annotations: %w", err)
		}
		sc.storeNotice = err
	}
	sc.store = store

	return sc, nil
}

func gmailMailbox(ctx context.Context, paths config.Paths) (ddtscan.MessageSource, error) {
	conf, err := google.LoadConfig(paths.Credentials, google.DefaultOAuthScopes...)
	if err != nil {
		return nil, err
	}
	client, err := gmail.NewClient(ctx, conf, google.NewTokenStore(paths.Token))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// applyConfig must be called with mu held or before the context is shared.
func (sc *ServerContext) applyConfig(fileCfg config.Config) error {
	cfg := fileCfg
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if sc.writeBack {
		cfg.WriteBack = true
	}
	sc.fileCfg = fileCfg
	sc.cfg = cfg
	return nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the logger of the context.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Paths returns the resolved file locations.
func (sc *ServerContext) Paths() config.Paths {
	return sc.paths
}

// Config returns the effective configuration, environment overrides included.
func (sc *ServerContext) Config() config.Config {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cfg
}

// Configure applies update to the saved configuration document and writes it back.
func (sc *ServerContext) Configure(update func(*config.Config)) (config.Config, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.configureLocked(update)
}

func (sc *ServerContext) configureLocked(update func(*config.Config)) (config.Config, error) {
	next := sc.fileCfg
	next.AllClientFolders = append([]string(nil), sc.fileCfg.AllClientFolders...)
	update(&next)
	if err := config.Save(sc.paths.Config, next); err != nil {
		return sc.cfg, err
	}
	if err := sc.applyConfig(next); err != nil {
		return sc.cfg, err
	}
	sc.logger.Info("configuration saved", logging.Path(sc.paths.Config))
	return sc.cfg, nil
}

// Store returns the annotation store.
func (sc *ServerContext) Store() *annotations.Store {
	return sc.store
}

// StoreNotice returns the decode diagnostic of the annotation document, if it could
// not be parsed at startup.
func (sc *ServerContext) StoreNotice() error {
	return sc.storeNotice
}

// Metrics returns the metrics recorder, nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder used by operations and tools.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// SetSourceOpener replaces the record source opener.
func (sc *ServerContext) SetSourceOpener(open SourceOpener) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.openSource = open
}

// SetMailbox sets the message source used by the DDT scan.
func (sc *ServerContext) SetMailbox(m ddtscan.MessageSource) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.mailbox = m
}

// recordSource opens the configured record source. The caller closes it.
func (sc *ServerContext) recordSource(ctx context.Context) (*source.Source, error) {
	d, err := sc.cfg.Descriptor()
	if err != nil {
		return nil, err
	}
	opts := []source.Option{source.WithLogger(sc.logger)}
	if sc.metrics != nil {
		opts = append(opts, source.WithObserver(sc.metrics))
	}
	return sc.openSource(ctx, d, opts...)
}

// mailboxLocked returns the cached message source, building it on first use.
func (sc *ServerContext) mailboxLocked(ctx context.Context) (ddtscan.MessageSource, error) {
	if sc.mailbox != nil {
		return sc.mailbox, nil
	}
	m, err := sc.newMailbox(ctx, sc.paths)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	sc.mailbox = m
	return m, nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.shutdown
}

// Shutdown cancels the context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
