// Package webapp serves the maintenance-request screens: identification,
// new request, history and downloads.
package webapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/phillip-england/maintreq/internal/logging"
	"github.com/phillip-england/maintreq/internal/media"
	"github.com/phillip-england/maintreq/internal/middleware"
	"github.com/phillip-england/maintreq/internal/requests"
	"github.com/phillip-england/maintreq/internal/session"
	"github.com/phillip-england/maintreq/internal/store"
)

const (
	csrfFieldName     = "csrf_token"
	sessionCookieName = "maintreq_session"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

//go:embed templates/*.html assets/app.css
var templatesFS embed.FS

// RequestStore is the persistence gateway as seen by the screens.
type RequestStore interface {
	InsertRequest(ctx context.Context, req requests.Request) (int64, error)
	FetchAllRequests(ctx context.Context) ([]requests.Request, error)
	DeleteRequest(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// deps are the collaborators Run builds from Config. A nil store means the
// database is not configured; a nil uploader carries its reason in
// uploaderErr.
type deps struct {
	store       RequestStore
	uploader    media.Uploader
	uploaderErr error
	logger      *zap.Logger
	logo        []byte
	now         func() time.Time
}

type server struct {
	cfg      Config
	sessions *session.Store
	store    RequestStore
	uploader media.Uploader

	uploaderErr error
	logger      *zap.Logger
	logo        []byte
	now         func() time.Time

	// screens lists the routes that navigation may target.
	screens map[string]bool

	identifyTmpl *template.Template
	welcomeTmpl  *template.Template
	newTmpl      *template.Template
	historyTmpl  *template.Template
	hardStopTmpl *template.Template
}

func newServer(cfg Config, d deps) *server {
	if cfg.Location == nil {
		cfg.Location = LoadLocation(requests.DefaultTimezone)
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Second
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return &server{
		cfg:          cfg,
		sessions:     session.NewStore(cfg.SessionTTL, cfg.PasswordGate),
		store:        d.store,
		uploader:     d.uploader,
		uploaderErr:  d.uploaderErr,
		logger:       d.logger,
		logo:         d.logo,
		now:          d.now,
		screens:      map[string]bool{},
		identifyTmpl: parsePage("identify.html"),
		welcomeTmpl:  parsePage("welcome.html"),
		newTmpl:      parsePage("new.html"),
		historyTmpl:  parsePage("history.html"),
		hardStopTmpl: parsePage("hardstop.html"),
	}
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.identifyRoute))
	mux.Handle("/new", middleware.Chain(http.HandlerFunc(s.newRequestRoute), s.requireIdentified))
	mux.Handle("/history", middleware.Chain(http.HandlerFunc(s.historyPage), s.requireIdentified))
	mux.Handle("/history/actions", middleware.Chain(http.HandlerFunc(s.historyActions), s.requireIdentified))
	mux.Handle("/history/export", middleware.Chain(http.HandlerFunc(s.historyExport), s.requireIdentified))
	mux.Handle("/download", middleware.Chain(http.HandlerFunc(s.download), s.requireIdentified))
	mux.Handle("/logout", http.HandlerFunc(s.logout))
	mux.Handle("/healthz", http.HandlerFunc(s.healthz))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))
	mux.Handle("/assets/logo", http.HandlerFunc(s.logoFile))
	for _, path := range []string{"/new", "/history"} {
		s.screens[path] = true
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: https:",
		"script-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.Recover(s.logger),
		middleware.RequestLogger(s.logger),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp, AllowCamera: true}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	logger := logging.New(cfg.LogLevel, cfg.Env)
	defer func() { _ = logger.Sync() }()

	d := deps{logger: logger}
	if strings.TrimSpace(cfg.DBDSN) != "" {
		gateway := store.NewGateway(cfg.StoreConfig())
		if err := gateway.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		d.store = gateway
	} else {
		logger.Warn("DB_DSN is not set; request screens are disabled")
	}

	uploader, err := media.NewUploader(ctx, cfg.Media)
	if err != nil {
		logger.Warn("media upload unavailable", zap.Error(err))
		d.uploaderErr = err
	} else {
		d.uploader = uploader
	}

	if cfg.LogoPath != "" {
		if logo, err := os.ReadFile(cfg.LogoPath); err == nil {
			d.logo = logo
		} else {
			logger.Warn("logo not loaded", zap.String("path", cfg.LogoPath), zap.Error(err))
		}
	}
	if cfg.PasswordGate && cfg.MasterPassword == "" {
		logger.Warn("PASSWORD_GATE is on but MASTER_PASSWORD is empty; identification is blocked")
	}

	s := newServer(cfg, d)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("maintreq listening on http://localhost%s", cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := http.StatusOK
	database := "unconfigured"
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("health check database ping failed", zap.Error(err))
			database = "error"
			status = http.StatusServiceUnavailable
		} else {
			database = "ok"
		}
	}
	upload := "ok"
	if s.uploader == nil {
		upload = "unconfigured"
	}
	writeJSON(w, status, map[string]string{
		"status":   http.StatusText(status),
		"database": database,
		"upload":   upload,
	})
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func (s *server) logoFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if len(s.logo) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(s.logo))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(s.logo)
}
