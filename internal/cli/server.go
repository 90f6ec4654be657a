package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/yawuzz/sui-quiz/internal/config"
	"github.com/yawuzz/sui-quiz/internal/domain"
	"github.com/yawuzz/sui-quiz/internal/game"
	"github.com/yawuzz/sui-quiz/internal/infra/memory"
	pgloader "github.com/yawuzz/sui-quiz/internal/infra/postgres"
	redisrepo "github.com/yawuzz/sui-quiz/internal/infra/redis"
	transport "github.com/yawuzz/sui-quiz/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes transport.QuizRepository
	if redisClient != nil {
		quizzes = redisrepo.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	rooms := game.NewStore(game.Config{
		RevealDelay: config.Duration(cfg.Game.RevealDelay, 5*time.Second),
	})
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go rooms.Janitor(janitorCtx,
		config.Duration(cfg.Game.SweepInterval, time.Minute),
		config.Duration(cfg.Game.RoomTTL, 10*time.Minute))

	wsHandler := transport.NewWSHandler(rooms, quizzes)
	catalog := transport.NewCatalogHandler(quizzes)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/api/quizzes", catalog.ServeList)
	mux.HandleFunc("/api/quizzes/", catalog.ServeQuiz)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived WebSocket sessions.
	}

	go func() {
		log.Printf("starting trivia server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the catalog when no Postgres backend is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"sui-basics": {
			ID:          "sui-basics",
			Title:       "Sui Basics",
			Description: "Intro to Sui concepts",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Text:         "Which language is used to write smart contracts on Sui?",
					Options:      []string{"Solidity", "Move", "Rust", "Vyper"},
					CorrectIndex: 1,
					Points:       200,
					DurationSec:  20,
				},
				{
					ID:           "q2",
					Text:         "What is a key performance characteristic of Sui?",
					Options:      []string{"Single-threaded TX", "Object-centric model", "No parallelism", "Pow consensus"},
					CorrectIndex: 1,
					Points:       200,
					DurationSec:  20,
				},
				{
					ID:           "q3",
					Text:         "Which of the following is non-transferable by design?",
					Options:      []string{"NFT", "Coin", "SBT", "Package"},
					CorrectIndex: 2,
					Points:       200,
					DurationSec:  20,
				},
				{
					ID:           "q4",
					Text:         "zkLogin is mainly used for…",
					Options:      []string{"Private L2", "Gas abstraction", "OAuth-like login", "MEV protection"},
					CorrectIndex: 2,
					Points:       200,
					DurationSec:  20,
				},
			},
		},
	}
}
