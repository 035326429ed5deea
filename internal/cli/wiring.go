package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/file"
	"timed-quiz-service/internal/infra/memory"
	pgstore "timed-quiz-service/internal/infra/postgres"
	redisstore "timed-quiz-service/internal/infra/redis"
	"timed-quiz-service/internal/infra/remote"
)

// runtime holds the wired service and everything that must be released on exit.
type runtime struct {
	service  *app.QuizService
	recorder *app.Recorder
	closers  []func() error
}

func (r *runtime) Close() error {
	r.recorder.Wait()
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

func buildRuntime(ctx context.Context, cfg config.Config, log *zap.Logger, opts ...app.SessionOption) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			for i := len(rt.closers) - 1; i >= 0; i-- {
				_ = rt.closers[i]()
			}
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, redisClient.Close)
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		applied, err := pgstore.Migrate(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			log.Info("migrations applied", zap.Strings("migrations", applied))
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
	}

	var store app.RankingStore
	switch cfg.Store.Driver {
	case config.DriverFile:
		fs, err := file.Open(cfg.Store.Dir, log)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, fs.Close)
		store = fs
	case config.DriverMemory:
		store = memory.NewRankingStore()
	case config.DriverRedis:
		store = redisstore.NewRankingStore(redisClient, cfg.Redis.Prefix)
	case config.DriverPostgres:
		store = pgstore.NewRankingStore(pool)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	var loader app.PoolLoader = memory.NewStaticPoolLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}
	poolTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		loader = redisstore.NewPoolCache(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, poolTTL))
	} else {
		loader = memory.NewPoolCache(loader, poolTTL)
	}

	var sink app.RemoteSink
	if cfg.Remote.URL != "" {
		sink = remote.NewClient(cfg.Remote.URL, remote.WithTimeout(config.TTLDuration(cfg.Remote.Timeout, 5*time.Second)))
	}

	hub := app.NewHub()
	rt.recorder = app.NewRecorder(store, sink, hub, log)
	sessionOpts := append([]app.SessionOption{
		app.WithLogger(log),
		app.WithWarningAt(cfg.Quiz.WarningAt),
	}, opts...)
	session := app.NewSession(rt.recorder, hub, sessionOpts...)

	rules := app.Rules{
		StandardTimeLimit:    cfg.Quiz.StandardTimeLimit,
		CompetitionTimeLimit: cfg.Quiz.CompetitionTimeLimit,
		NumDept:              cfg.Quiz.NumDept,
		NumGen:               cfg.Quiz.NumGen,
		CompetitionQuestions: cfg.Quiz.CompetitionQuestions,
	}
	rt.service = app.NewQuizService(session, app.NewSamplingSupplier(loader), store, rules, log)

	log.Info("quiz runtime ready",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("postgres", pool != nil),
		zap.Bool("remote", sink != nil),
	)
	return rt, nil
}
