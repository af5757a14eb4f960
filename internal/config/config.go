package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	// VerificationTokenKey is the base64-encoded 32-byte AES key that seals
	// verification tokens. Loaded once at startup, shared read-only by all
	// requests; it is process configuration, not session state.
	VerificationTokenKey string

	// SyntheticEmailDomain is the domain under which phone-only accounts get
	// their placeholder email, e.g. "homehive.app" -> <digits>@phone.homehive.app.
	SyntheticEmailDomain string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	EmailOTPs     string
	PhoneOTPs     string
	Notifications string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			EmailOTPs:     getEnv("DYNAMO_TABLE_EMAIL_OTPS", "email_otps"),
			PhoneOTPs:     getEnv("DYNAMO_TABLE_PHONE_OTPS", "phone_otps"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "homehive-avatars"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 72)) * time.Hour,

		VerificationTokenKey: getEnv("VERIFICATION_TOKEN_KEY", ""),
		SyntheticEmailDomain: getEnv("SYNTHETIC_EMAIL_DOMAIN", "homehive.app"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@homehive.app"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// TokenKey decodes and validates the verification token key.
func (c *Config) TokenKey() ([]byte, error) {
	if c.VerificationTokenKey == "" {
		return nil, fmt.Errorf("VERIFICATION_TOKEN_KEY is not set")
	}
	key, err := base64.StdEncoding.DecodeString(c.VerificationTokenKey)
	if err != nil {
		return nil, fmt.Errorf("decode VERIFICATION_TOKEN_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("VERIFICATION_TOKEN_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
