package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"appointment-scheduler/internal/app"
	"appointment-scheduler/internal/appointment"
	"appointment-scheduler/internal/availability"
	"appointment-scheduler/internal/calendar"
	"appointment-scheduler/internal/config"
	"appointment-scheduler/internal/credentials"
	"appointment-scheduler/internal/meeting"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/notify"
	"appointment-scheduler/internal/oauthstate"
	"appointment-scheduler/internal/server"
	"appointment-scheduler/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	db := store.New(pool)
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gateway := calendar.NewGateway(calendar.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Location:     cfg.Location,
		Timeout:      cfg.CalendarTimeout,
	})
	vault := credentials.NewVault(db, gateway)

	notifyOpts := []notify.Option{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: could not connect to redis, live notifications may be lost: %v", err)
		}
		notifyOpts = append(notifyOpts, notify.WithLive(notify.NewRedisSink(rdb)))
	}
	dispatcher := notify.NewDispatcher(notify.NewInbox(db), notifyOpts...)

	resolver := meeting.NewResolver(vault, gateway, db, meeting.WithFallbackBaseURL(cfg.FallbackMeetingBaseURL))
	appointments := appointment.NewService(db, resolver, dispatcher, appointment.WithLocation(cfg.Location))
	aggregator := availability.NewAggregator(db, vault, gateway, cfg.Location)

	appInstance := &app.App{
		Appointments: appointments,
		Availability: aggregator,
		Inbox:        db,
		RedirectURL:  cfg.GoogleRedirectURL,
		Location:     cfg.Location,
	}
	if cfg.GoogleConfigured() {
		states := oauthstate.NewCodec(cfg.StateSecret(), cfg.OAuthStateTTL)
		appInstance.Calendar = credentials.NewConnector(vault, gateway, states, model.ProviderGoogle)
		appInstance.States = states
	} else {
		log.Println("Google Calendar not configured; calendar connect disabled")
	}

	router := gin.Default()
	limiter := app.NewRateLimiter(cfg.ConnectRateLimit, cfg.ConnectRateBurst)
	appInstance.Register(router, app.AuthMiddleware(cfg.JWTSecret, cfg.StaticTokens), limiter.Middleware())

	if err := server.Run(router, cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
