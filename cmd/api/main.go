package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"

	"livechat-csat-service/internal/config"
	"livechat-csat-service/internal/csat"
	"livechat-csat-service/internal/dispatch"
	"livechat-csat-service/internal/handlers"
	"livechat-csat-service/internal/routes"
	"livechat-csat-service/internal/services"
	"livechat-csat-service/internal/store"
)

func connectDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func databaseDoesNotExist(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 3D000: invalid_catalog_name
		return string(pqErr.Code) == "3D000"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") && strings.Contains(msg, "database")
}

func ensureDatabaseExists(ctx context.Context, cfg config.Config) error {
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if strings.TrimSpace(dbName) == "" {
		return errors.New("DATABASE_URL missing database name")
	}

	maint := *u
	maint.Path = "/" + strings.TrimSpace(cfg.MaintenanceDB)
	maintDB, err := connectDB(ctx, maint.String())
	if err != nil {
		return err
	}
	defer maintDB.Close()

	var exists int
	err = maintDB.QueryRowContext(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", dbName).Scan(&exists)
	if err == sql.ErrNoRows {
		exists = 0
		err = nil
	}
	if err != nil {
		return err
	}
	if exists == 1 {
		return nil
	}

	_, err = maintDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName))
	return err
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := connectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		if cfg.AutoCreateDB && databaseDoesNotExist(err) {
			if err2 := ensureDatabaseExists(ctx, cfg); err2 != nil {
				panic(err2)
			}
			db, err = connectDB(ctx, cfg.DatabaseURL)
		}
	}
	if err != nil {
		panic(err)
	}
	defer db.Close()

	pg := store.NewPostgresStore(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		panic(err)
	}

	hc := &http.Client{Timeout: 30 * time.Second}

	livechat := &services.LiveChatClient{BaseURL: cfg.LiveChat.BaseURL, APIKey: cfg.LiveChat.APIKey, HTTP: hc}

	pipeline := &csat.Pipeline{Transcripts: livechat}
	if cfg.SentimentConfigured() {
		pipeline.Enabled = true
		pipeline.Sentiment = &services.SentimentClient{
			Endpoint: cfg.Sentiment.Endpoint,
			APIKey:   cfg.Sentiment.APIKey,
			Timeout:  cfg.Sentiment.Timeout,
			HTTP:     hc,
		}
	}

	var sink dispatch.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		ks := dispatch.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.ActionsTopic, cfg.Kafka.EventsTopic)
		defer ks.Close()
		sink = ks
	} else {
		sink = dispatch.NewMemorySink()
	}

	chatSvc := services.NewChatService(livechat, pg, pipeline, sink)

	chatHandlers := &handlers.ChatHandlers{Chat: chatSvc}
	convHandlers := &handlers.ConversationHandlers{Chat: chatSvc, Store: pg}

	h := routes.NewRouter(cfg, chatHandlers, convHandlers)

	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	addr := ":" + cfg.Port
	log.Printf("livechat-csat-service listening on %s (livechat=%s sentiment_enabled=%v)", addr, cfg.LiveChat.BaseURL, pipeline.Enabled)
	if err := http.ListenAndServe(addr, h); err != nil {
		panic(err)
	}
}
