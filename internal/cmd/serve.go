package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/vinceanalytics/tally/internal/api"
	"github.com/vinceanalytics/tally/internal/config"
	"github.com/vinceanalytics/tally/internal/db"
	"github.com/vinceanalytics/tally/internal/imports"
	"github.com/vinceanalytics/tally/internal/logger"
	"github.com/vinceanalytics/tally/internal/metrics"
	"github.com/vinceanalytics/tally/internal/stats"
	"github.com/vinceanalytics/tally/internal/store"
	"github.com/vinceanalytics/tally/internal/traits"
	"golang.org/x/sync/errgroup"
)

func serveCMD() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "starts the http server",
		Action: func(ctx context.Context, x *cli.Command) error {
			conf, err := config.Load(config.Base(x), x.String("config"))
			if err != nil {
				return err
			}
			log := logger.New(os.Stdout, conf.LogLevel)
			ctx = logger.With(ctx, log)
			ctx = config.With(ctx, &conf)
			ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			defer cancel()
			return serve(ctx, &conf)
		},
	}
}

func serve(ctx context.Context, conf *config.Config) error {
	log := logger.Get(ctx)
	reg := metrics.NewRegistry()

	g, err := db.Open(conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(g)

	ch, err := store.Open(ctx, conf.ClickHouse.DSN, store.Options{
		Retries: uint64(conf.ClickHouse.Retries),
		Timeout: conf.ClickHouse.Timeout,
		Metrics: store.NewMetrics(reg),
	})
	if err != nil {
		return err
	}
	defer ch.Close()

	bucket, err := imports.NewBucket(conf.Bucket)
	if err != nil {
		return err
	}
	defer bucket.Close()

	a := &api.API{
		Stats:   stats.New(ch, traits.New(traits.NewStore(g))),
		Imports: imports.New(g, ch, bucket),
		Ping: func(r *http.Request) error {
			return ch.Ping(r.Context())
		},
	}
	svr := &http.Server{
		Addr:              conf.Listen,
		Handler:           a.Handler(reg, conf.CORSOrigins...),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("starting server", "addr", conf.Listen)
		if err := svr.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return svr.Shutdown(sctx)
	})
	return eg.Wait()
}
