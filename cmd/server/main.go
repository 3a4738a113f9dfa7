package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpress/postpress/pkg/postpress"
	"github.com/postpress/postpress/pkg/postpress/api"
	"github.com/postpress/postpress/pkg/postpress/auth"
	"github.com/postpress/postpress/pkg/postpress/ratelimit"
	memoryrepo "github.com/postpress/postpress/pkg/postpress/repo/memory"
	"github.com/postpress/postpress/pkg/postpress/repo/postgres"
	fsstorage "github.com/postpress/postpress/pkg/postpress/storage/fs"
	memorystorage "github.com/postpress/postpress/pkg/postpress/storage/memory"
	s3storage "github.com/postpress/postpress/pkg/postpress/storage/s3"
)

type Config struct {
	Port      string `env:"PORT" env-default:"8080"`
	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`
	DB        DbConfig
	Storage   StorageConfig
}

type DbConfig struct {
	Enabled  bool   `env:"POSTS_PG_ENABLED" env-default:"false"`
	Port     uint16 `env:"POSTS_PG_PORT" env-default:"5432"`
	Host     string `env:"POSTS_PG_HOST" env-default:"localhost"`
	Name     string `env:"POSTS_PG_NAME" env-default:"posts_db"`
	User     string `env:"POSTS_PG_USER" env-default:"posts"`
	Password string `env:"POSTS_PG_PASSWORD" env-default:"pwd"`
}

// StorageConfig selects the image blob backend: memory for tests and
// throwaway runs, fs for single-host deployments, s3 for everything else.
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" env-default:"memory"`
	FS      FsConfig
	S3      S3Config
}

type FsConfig struct {
	BaseDir       string `env:"STORAGE_FS_DIR" env-default:"./data/images"`
	PublicBaseURL string `env:"STORAGE_FS_PUBLIC_BASE_URL" env-default:"http://localhost:8080/images"`
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"post-images"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"true"`
	PublicBaseURL   string `env:"AWS_S3_PUBLIC_BASE_URL" env-default:""`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func newRepository(ctx context.Context, config DbConfig) (postpress.Repository, func(), error) {
	if !config.Enabled {
		return memoryrepo.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, config.toDatabaseUrl())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return postgres.NewWithPool(pool), pool.Close, nil
}

func newBlobStore(config StorageConfig) (postpress.BlobStore, error) {
	switch config.Backend {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:       config.FS.BaseDir,
			PublicBaseURL: config.FS.PublicBaseURL,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Endpoint:               config.S3.Endpoint,
			AccessKeyID:            config.S3.AccessKeyID,
			SecretAccessKey:        config.S3.SecretAccessKey,
			Bucket:                 config.S3.BucketName,
			Region:                 config.S3.Region,
			UsePathStyle:           config.S3.UsePathStyle,
			PublicBaseURL:          config.S3.PublicBaseURL,
			CreateBucketIfNotExist: config.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", config.Backend)
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	repository, closeRepo, err := newRepository(ctx, config.DB)
	if err != nil {
		slog.Error("Failed to initialize record store", "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	blobStore, err := newBlobStore(config.Storage)
	if err != nil {
		slog.Error("Failed to initialize blob store", "err", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(ratelimit.DefaultBudgets())
	defer limiter.Close()

	service, err := postpress.New(
		postpress.WithRepository(repository),
		postpress.WithBlobStore(blobStore),
		postpress.WithAdmitter(limiter),
		postpress.WithLogger(logger),
	)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	gate := auth.New(config.JWTSecret)

	handler := api.NewRouter(service, gate, logger)
	if config.Storage.Backend == "fs" {
		// The fs store builds URLs under /images; serve the directory here.
		root := chi.NewRouter()
		root.Mount("/images", http.StripPrefix("/images", http.FileServer(http.Dir(config.Storage.FS.BaseDir))))
		root.Mount("/", handler)
		handler = root
	}

	server := &http.Server{
		Addr:    ":" + config.Port,
		Handler: handler,
	}

	go func() {
		slog.Info("server listening", "port", config.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
	slog.Info("server stopped")
}
