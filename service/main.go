package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/osr-alliance/backend-lead-intake/service/config"
	"github.com/osr-alliance/backend-lead-intake/service/ingest"
	"github.com/osr-alliance/backend-lead-intake/service/outreach"
	"github.com/osr-alliance/backend-lead-intake/service/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	conf, err := config.Load(".env", ".env.local")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, conf); err != nil {
		logger.WithError(err).Fatal("lead intake stopped")
	}
	logger.Info("lead intake stopped")
}

func run(ctx context.Context, conf *config.Configuration) error {
	logger := conf.Logger()
	warnOpenCallback(logger, conf.Outreach)

	writeConn, readConn, redisDb, err := createConns(ctx, conf)
	if err != nil {
		return err
	}
	defer writeConn.Close()
	if readConn != writeConn {
		defer readConn.Close()
	}
	if redisDb != nil {
		defer redisDb.Close()
	}

	if err = store.Migrate(ctx, writeConn); err != nil {
		return err
	}

	s, err := store.New(&store.Config{
		ReadConn:      readConn,
		WriteConn:     writeConn,
		Redis:         redisDb,
		DoNotUseCache: conf.Redis.Disabled,
		Debugger:      conf.StorageDebug,
		Logger:        logger,
	})
	if err != nil {
		return errors.Wrap(err, "creating lead store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	l := NewLead(&Config{
		store: s,
		gate: ingest.New(&ingest.Config{
			Store:        s,
			Logger:       logger,
			Metrics:      ingest.NewMetrics(reg),
			RefreshLimit: conf.MaxPageSize,
		}),
		caller: outreach.New(&outreach.Config{
			URL:     conf.Outreach.WebhookURL,
			Timeout: conf.Outreach.Timeout,
			Logger:  logger,
		}),
		logger:         logger,
		maxUploadSize:  conf.MaxUploadSize,
		pageSize:       conf.PageSize,
		maxPageSize:    conf.MaxPageSize,
		callbackSecret: conf.Outreach.CallbackSecret,
	})

	srv := &http.Server{
		Handler:      withCORS(conf.AllowedOrigins, conf.UserIDHeader, conf.RequestIDHeader, newRouter(conf, logger, l, reg)),
		Addr:         conf.SocketAddress,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", srv.Addr).Info("lead intake listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// warnOpenCallback flags a call-outcome webhook that anyone can post to
func warnOpenCallback(logger *logrus.Logger, opts config.OutreachOptions) bool {
	if opts.CallbackSecret != "" {
		return false
	}
	logger.WithField("outreach-configured", opts.WebhookURL != "").
		Warn("OUTREACH_CALLBACK_SECRET is empty: /webhooks/call-outcome accepts unauthenticated status changes for any lead")
	return true
}

func newRouter(conf *config.Configuration, logger *logrus.Logger, l leadInterface, reg *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()
	router.Use(withLogger(logger, conf.RequestIDHeader))

	router.Handle(conf.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/webhooks/call-outcome", l.CallOutcome).Methods(http.MethodPost)

	leads := router.PathPrefix("/leads").Subrouter()
	leads.Use(withOwner(conf.UserIDHeader))
	leads.HandleFunc("", l.List).Methods(http.MethodGet)
	leads.HandleFunc("", l.Set).Methods(http.MethodPost)
	leads.HandleFunc("/upload", l.Upload).Methods(http.MethodPost)
	leads.HandleFunc("/{id:[0-9]+}", l.Get).Methods(http.MethodGet)
	leads.HandleFunc("/{id:[0-9]+}/call", l.Call).Methods(http.MethodPost)

	return router
}

func createConns(ctx context.Context, conf *config.Configuration) (*sqlx.DB, *sqlx.DB, *redis.Client, error) {
	writeConn, err := sqlx.ConnectContext(ctx, "postgres", conf.Database.ConnectionString())
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "connecting to postgres")
	}

	readConn := writeConn
	if conf.Database.ReadHost != "" {
		readConn, err = sqlx.ConnectContext(ctx, "postgres", conf.Database.ReadConnectionString())
		if err != nil {
			writeConn.Close()
			return nil, nil, nil, errors.Wrap(err, "connecting to the postgres replica")
		}
	}

	if conf.Redis.Disabled {
		return writeConn, readConn, nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err = rdb.Ping(ctx).Err(); err != nil {
		writeConn.Close()
		if readConn != writeConn {
			readConn.Close()
		}
		return nil, nil, nil, errors.Wrap(err, "connecting to redis")
	}

	return writeConn, readConn, rdb, nil
}
