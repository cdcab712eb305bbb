package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jub0bs/corsrw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var helloWorld = []byte(`{"hello": "world"}`)

type server struct {
	cfg     Config
	logger  *log.Logger
	mw      *corsrw.Middleware
	handler http.Handler
	metrics http.Handler // nil if metrics are disabled
}

func newServer(cfg Config) (*server, error) {
	logger, err := cfg.newLogger()
	if err != nil {
		return nil, err
	}
	pred, err := cfg.originPredicate()
	if err != nil {
		return nil, err
	}
	corsCfg := cfg.CORS
	if pred != nil {
		corsCfg.OriginPredicate = pred
	}
	corsCfg.Logger = logger

	s := server{cfg: cfg, logger: logger}
	if cfg.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := corsrw.NewMetrics(reg)
		if err != nil {
			return nil, err
		}
		corsCfg.Metrics = metrics
		s.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	s.mw, err = corsrw.NewMiddleware(corsCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid CORS configuration: %w", err)
	}
	s.mw.SetDebug(cfg.Debug)

	mux := http.NewServeMux()
	mux.Handle("GET /", corsrw.NewHTTPHandler(s.mw.Apply(helloHandler()), logger))
	mux.Handle("GET /http/", s.mw.Wrap(http.HandlerFunc(serveHello)))
	s.handler = mux
	return &s, nil
}

// helloHandler responds with the JSON document by means of events.
func helloHandler() corsrw.Handler {
	return corsrw.HandlerFunc(func(ctx context.Context, _ *corsrw.Request, send corsrw.Send) error {
		start := corsrw.Event{
			Type:   corsrw.ResponseStart,
			Status: http.StatusOK,
			Headers: []corsrw.Field{
				{Name: "content-type", Value: "application/json"},
				{Name: "content-length", Value: strconv.Itoa(len(helloWorld))},
			},
		}
		if err := send(ctx, start); err != nil {
			return err
		}
		return send(ctx, corsrw.Event{Type: corsrw.ResponseBody, Body: helloWorld})
	})
}

// serveHello responds with the JSON document by means of net/http.
func serveHello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(helloWorld)
}

// run serves until ctx is done or some listener fails.
func (s *server) run(ctx context.Context) error {
	servers := []*http.Server{{
		Addr:              s.cfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
	if s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", s.metrics)
		servers = append(servers, &http.Server{
			Addr:              s.cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			s.logger.WithField("address", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		s.logger.Info("stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}
