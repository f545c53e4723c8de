// Package server runs the agent's HTTP listeners as one unit: both bind or
// neither serves, and the failure of one stops the other.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Listener describes one HTTP endpoint set.
type Listener struct {
	Name    string
	Addr    string
	Handler http.Handler
}

// Options configures every http.Server the supervisor creates.
// Zero values fall back to conservative defaults.
type Options struct {
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.ReadHeaderTimeout == 0 {
		o.ReadHeaderTimeout = 5 * time.Second
	}
	// WriteTimeout stays zero unless set: the log stream is long-lived and
	// request handlers are bounded by the router's timeout middleware instead.
	if o.IdleTimeout == 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	return o
}

type bound struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

// Supervisor owns a fixed set of listeners.
type Supervisor struct {
	listeners []Listener
	opts      Options
	logger    *slog.Logger
	bound     []bound
}

func New(logger *slog.Logger, opts Options, listeners ...Listener) *Supervisor {
	return &Supervisor{
		listeners: listeners,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// Bind acquires every port up front. If any bind fails, the ports already
// acquired are released and no listener serves.
func (s *Supervisor) Bind() error {
	if s.bound != nil {
		return errors.New("server: already bound")
	}

	acquired := make([]bound, 0, len(s.listeners))
	for _, l := range s.listeners {
		ln, err := net.Listen("tcp", l.Addr)
		if err != nil {
			for _, b := range acquired {
				b.ln.Close()
			}
			return fmt.Errorf("bind %s listener on %s: %w", l.Name, l.Addr, err)
		}
		acquired = append(acquired, bound{
			name: l.Name,
			ln:   ln,
			srv: &http.Server{
				Handler:           l.Handler,
				ReadTimeout:       s.opts.ReadTimeout,
				ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
				WriteTimeout:      s.opts.WriteTimeout,
				IdleTimeout:       s.opts.IdleTimeout,
				ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
			},
		})
	}

	s.bound = acquired
	return nil
}

// Addr returns the bound address of the named listener, or nil before Bind.
func (s *Supervisor) Addr(name string) net.Addr {
	for _, b := range s.bound {
		if b.name == name {
			return b.ln.Addr()
		}
	}
	return nil
}

// Run serves every listener until ctx is cancelled or one of them fails.
// It binds first when Bind has not been called. A clean shutdown returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.bound == nil {
		if err := s.Bind(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, b := range s.bound {
		g.Go(func() error {
			s.logger.Info("Listener active", slog.String("listener", b.name), slog.String("addr", b.ln.Addr().String()))
			if err := b.srv.Serve(b.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Listener crashed", slog.String("listener", b.name), slog.String("error", err.Error()))
				return fmt.Errorf("%s listener: %w", b.name, err)
			}
			return nil
		})
	}

	// 🛡️ Conjunction of lifetimes: the first failure (or ctx) takes every listener down.
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, b := range s.bound {
			if err := b.srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s listener: %w", b.name, err))
			}
		}
		s.logger.Info("Listeners stopped")
		return errors.Join(errs...)
	})

	return g.Wait()
}
