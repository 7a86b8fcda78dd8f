package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "termbot/pkg/logx"
)

const (
	DefaultAddr = "127.0.0.1:9108"
	DefaultPath = "/metrics"
)

// ServerConfig controls the optional scrape listener.
//
// Binding to a non-loopback address requires AllowPublic.
type ServerConfig struct {
	Addr        string
	Path        string
	AllowPublic bool

	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

var ErrInsecureBind = errors.New("metrics refused to start: non-loopback addr")

// Handler returns the mux serving m on path plus /healthz.
func (m *Metrics) Handler(path string) http.Handler {
	path = normalizePath(path)
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens until ctx is done. It returns nil on a clean shutdown.
func (m *Metrics) Serve(ctx context.Context, cfg ServerConfig, log logx.Logger) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if !cfg.AllowPublic && !isLoopbackAddr(addr) {
		log.Error("metrics refused to start", logx.String("addr", addr))
		return ErrInsecureBind
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = 10 * time.Second
	}
	srv := &http.Server{
		Handler:           m.Handler(cfg.Path),
		ReadHeaderTimeout: read,
		ReadTimeout:       read,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	log.Info("metrics started", logx.String("addr", ln.Addr().String()), logx.String("path", normalizePath(cfg.Path)))
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		log.Info("metrics stopped")
		return nil
	}
	return err
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func isLoopbackAddr(addr string) bool {
	// addr is expected in host:port (host may be empty).
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// empty host means all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
