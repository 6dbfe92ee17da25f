package config

import (
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

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	// ChallengeTTL bounds how long a delivered code stays verifiable.
	ChallengeTTL time.Duration
	// ChallengeDigits is the length of delivered numeric codes.
	ChallengeDigits int
	// DeliveryTimeout bounds a single SMS/email send.
	DeliveryTimeout time.Duration
	// TOTPIssuer is the issuer label shown in authenticator apps.
	TOTPIssuer string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts         string
	Challenges       string
	TwoFactorSecrets string
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
			Accounts:         getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Challenges:       getEnv("DYNAMO_TABLE_CHALLENGES", "challenges"),
			TwoFactorSecrets: getEnv("DYNAMO_TABLE_TWOFACTOR_SECRETS", "twofactor_secrets"),
		},

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		ChallengeTTL:    time.Duration(getEnvInt("CHALLENGE_TTL_MINUTES", 10)) * time.Minute,
		ChallengeDigits: getEnvInt("CHALLENGE_DIGITS", 6),
		DeliveryTimeout: time.Duration(getEnvInt("DELIVERY_TIMEOUT_SECONDS", 10)) * time.Second,
		TOTPIssuer:      getEnv("TOTP_ISSUER", "go-verify-api"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
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
