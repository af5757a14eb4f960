package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/homehive/homehive-api/internal/config"
	"github.com/homehive/homehive-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/homehive/homehive-api/internal/infrastructure/jwt"
	s3infra "github.com/homehive/homehive-api/internal/infrastructure/s3"
	"github.com/homehive/homehive-api/internal/infrastructure/smtp"
	"github.com/homehive/homehive-api/internal/infrastructure/sns"
	"github.com/homehive/homehive-api/internal/pkg/vtoken"
	transporthttp "github.com/homehive/homehive-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// The verification token key is required: without it no login challenge
	// can be issued or checked.
	key, err := cfg.TokenKey()
	if err != nil {
		log.Fatalf("verification token key: %v", err)
	}
	codec, err := vtoken.NewCodec(key)
	if err != nil {
		log.Fatalf("verification token codec: %v", err)
	}

	// JWT provider is optional; without keys the API runs with auth routes disabled.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for profile avatars.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender is optional in local setups.
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		EmailOTPRepo:     dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.EmailOTPs),
		PhoneOTPRepo:     dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.PhoneOTPs),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		S3Store:          s3Store,
		Mailer:           mailer,
		SMSSender:        smsSender,
		JWTProvider:      jwtProvider,
		TokenCodec:       codec,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
