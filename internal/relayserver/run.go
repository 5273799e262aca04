package relayserver

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/routeops/traefik-route-relay/internal/config"
	"github.com/routeops/traefik-route-relay/internal/logx"
	"github.com/routeops/traefik-route-relay/pkg/ingress"
)

// Run starts the relay daemon and blocks until the listener fails.
func Run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	accessLogger, accessClose, err := openAccessLogger(cfg)
	if err != nil {
		return fmt.Errorf("init access log: %w", err)
	}
	if accessClose != nil {
		defer func() { _ = accessClose.Close() }()
	}

	pidCleanup, err := writePIDFile(cfg)
	if err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if pidCleanup != nil {
		defer func() { _ = pidCleanup.Close() }()
	}

	store, err := ingress.Open(cfg.Units.File)
	if err != nil {
		return fmt.Errorf("open units file %q: %w", cfg.Units.File, err)
	}
	log.Printf("loaded %d unit request(s) from %q", store.Len(), cfg.Units.File)

	st := newState(cfg, store)
	if _, err := st.Document(); err != nil {
		// Not fatal: the daemon serves 503 on /dynamic-config until the
		// operator fixes the template, mirroring a blocked-but-alive unit.
		log.Printf("route template not usable yet: %v", err)
	}

	installReloadSignalHandler(cfg, st)
	autoReloadClose, err := installRouteAutoReload(cfg, st)
	if err != nil {
		return fmt.Errorf("init route auto reload: %w", err)
	}
	if autoReloadClose != nil {
		defer func() { _ = autoReloadClose.Close() }()
	}

	accessFormatter, err := logx.CompileAccessFormat(cfg.ResolvedAccessFormat())
	if err != nil {
		return fmt.Errorf("compile access_log_format: %w", err)
	}

	engine := NewRouter(cfg, st, accessLogger, accessFormatter)
	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}

	log.Printf("traefik-route relay listening on %s", cfg.Server.Listen)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func openAccessLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	if cfg == nil || !cfg.Logging.AccessLog {
		return nil, nil, nil
	}

	path := strings.TrimSpace(cfg.Logging.AccessLogPath)
	if path == "" {
		return log.New(os.Stdout, "", log.LstdFlags), nil, nil
	}

	if cfg.Logging.AccessLogRotate.Enabled {
		w, err := logx.NewRotateWriter(logx.RotateOptions{
			Path:       path,
			MaxSizeMB:  cfg.Logging.AccessLogRotate.MaxSizeMB,
			MaxBackups: cfg.Logging.AccessLogRotate.MaxBackups,
			MaxAgeDays: cfg.Logging.AccessLogRotate.MaxAgeDays,
			Compress:   cfg.Logging.AccessLogRotate.Compress,
		})
		if err != nil {
			return nil, nil, err
		}
		return log.New(w, "", log.LstdFlags), w, nil
	}

	dir := filepath.Dir(path)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, err
		}
	}
	// #nosec G304 -- access_log_path comes from trusted config.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags), f, nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

func writePIDFile(cfg *config.Config) (io.Closer, error) {
	path := strings.TrimSpace(cfg.Server.PidFile)
	if path == "" {
		return nil, nil
	}
	dir := filepath.Dir(path)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}

	tmp := path + ".tmp"
	pid := strconv.Itoa(os.Getpid()) + "\n"
	// #nosec G304 -- pid_file comes from trusted config.
	if err := os.WriteFile(tmp, []byte(pid), 0o600); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return closerFunc(func() error { return os.Remove(path) }), nil
}

func installReloadSignalHandler(cfg *config.Config, st *state) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		for range ch {
			if err := st.ReloadTemplate(); err != nil {
				log.Printf("reload failed (signal): %v", err)
				continue
			}
			log.Printf("reload ok (signal): route_file=%q", cfg.Route.File)
		}
	}()
}
