package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"pqxdh/internal/directory"
	"pqxdh/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cmd, err := newCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() (*cobra.Command, error) {
	v := viper.New()
	v.SetEnvPrefix("PQXDH_DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:          "directory",
		Short:        "Serve pre-key bundles and queue handshake envelopes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cleanup, err := logging.New(v.GetString("log-level"), v.GetString("log-file"))
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, v, log)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "listen address")
	f.String("mongo-uri", "", "MongoDB connection URI (in-memory when empty)")
	f.String("mongo-db", "pqxdh", "MongoDB database name")
	f.String("log-level", "info", "log level")
	f.String("log-file", "", "also write JSON logs to this file")
	for _, key := range []string{"addr", "mongo-uri", "mongo-db", "log-level", "log-file"} {
		if err := v.BindPFlag(key, f.Lookup(key)); err != nil {
			return nil, errors.Wrapf(err, "bind flag %q", key)
		}
	}
	return cmd, nil
}

func serve(ctx context.Context, v *viper.Viper, log *zap.Logger) error {
	var repo directory.Repository = directory.NewMemoryRepository()
	if uri := v.GetString("mongo-uri"); uri != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return errors.Wrap(err, "connect mongo")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := client.Ping(ctx, nil); err != nil {
			return errors.Wrap(err, "ping mongo")
		}
		mr := directory.NewMongoRepository(client.Database(v.GetString("mongo-db")))
		if err := mr.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = mr
		log.Info("using mongo repository", zap.String("db", v.GetString("mongo-db")))
	}

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           directory.NewServer(repo, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("directory listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
