package clientservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopchat/go-client/internal/backend"
	"shopchat/go-client/internal/config"
	"shopchat/go-client/internal/platform/privacylog"
	"shopchat/go-client/internal/platform/ratelimiter"
	"shopchat/go-client/internal/session"
	"shopchat/go-client/internal/storage"
	"shopchat/go-client/internal/transport"
	"shopchat/go-client/pkg/models"
)

const guestStateFile = "guest_state.json"

// Service owns the fully wired session and its supporting pieces for the
// headless client binary.
type Service struct {
	cfg     config.Config
	logger  *slog.Logger
	session *session.Session
	metrics *http.Server
}

// Options are the binary's command-line inputs.
type Options struct {
	ConfigPath string
	// StateDir overrides the configured state directory when set.
	StateDir string
}

// Build loads configuration and assembles the session facade with its
// backend client, websocket dialer, guest state store and transport factory.
func Build(opts Options) (*Service, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.StateDir != "" {
		cfg.State.Dir = opts.StateDir
	}

	logger := newLogger(cfg.Log.Level)

	client, err := backend.NewClient(backend.Options{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.RequestTimeout,
		Token:   tokenFromEnv,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	dialer, err := backend.NewWSDialer(cfg.WebsocketURL(), tokenFromEnv, logger)
	if err != nil {
		return nil, err
	}

	guestStore, err := buildGuestStore(cfg)
	if err != nil {
		return nil, err
	}

	metrics := transport.NewMetrics(prometheus.DefaultRegisterer)
	factory := func(conversationID string, sink transport.EventSink) session.Transport {
		return transport.NewManager(transport.Options{
			ConversationID: conversationID,
			Dialer:         dialer,
			Lister:         client,
			Sink:           sink,
			PollInterval:   cfg.Backend.PollInterval,
			Logger:         logger,
			Metrics:        metrics,
		})
	}

	sess, err := session.New(session.Options{
		Backend:     client,
		GuestStore:  guestStore,
		Identity:    identityFromEnv{},
		Transport:   factory,
		SendLimiter: ratelimiter.New(cfg.Send.RatePerSecond, cfg.Send.Burst, 10*time.Minute),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	svc := &Service{cfg: cfg, logger: logger, session: sess}
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		svc.metrics = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	}
	return svc, nil
}

// Session exposes the wired facade for embedding callers.
func (s *Service) Session() session.API { return s.session }

// Run activates the session and blocks until the context is cancelled, then
// tears the transport down before returning.
func (s *Service) Run(ctx context.Context) error {
	if s.metrics != nil {
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Warn("metrics listener failed", "error", err)
			}
		}()
	}

	s.session.Activate(ctx)
	s.session.SetOpen(true)
	if conv, ok := s.session.Conversation(); ok {
		s.logger.Info("session resumed", "conversation_id", conv.ID, "status", conv.Status)
	} else {
		s.logger.Info("session started without an existing conversation")
	}

	<-ctx.Done()

	s.session.Deactivate()
	if s.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.metrics.Shutdown(shutdownCtx)
	}
	return nil
}

func buildGuestStore(cfg config.Config) (*storage.GuestStateStore, error) {
	if cfg.State.Dir == "" {
		return storage.NewGuestStateStore("", ""), nil
	}
	if err := os.MkdirAll(cfg.State.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	secret := ""
	if cfg.State.PassphraseFile != "" {
		raw, err := os.ReadFile(cfg.State.PassphraseFile)
		if err != nil {
			return nil, fmt.Errorf("read passphrase file: %w", err)
		}
		secret = strings.TrimSpace(string(raw))
	}
	return storage.NewGuestStateStore(filepath.Join(cfg.State.Dir, guestStateFile), secret), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	base := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(privacylog.WrapHandler(base))
}

func tokenFromEnv() string {
	return strings.TrimSpace(os.Getenv("SHOPCHAT_AUTH_TOKEN"))
}

// identityFromEnv treats a present auth token as an authenticated visitor;
// everything else starts anonymous.
type identityFromEnv struct{}

func (identityFromEnv) CurrentIdentity() models.Identity {
	if tokenFromEnv() != "" {
		return models.Identity{Kind: models.IdentityAuthenticated}
	}
	return models.Identity{Kind: models.IdentityAnonymous}
}
