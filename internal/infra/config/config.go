// internal/infra/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の環境変数設定を保持します。
type Config struct {
	Port string

	// PostgreSQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Solana
	SolanaCluster     string // "devnet" | "mainnet-beta"
	SolanaRPCEndpoint string
	MerkleTreeAddress string
	MintKeySecretName string // Secret Manager のリソース名

	// Issuance policy
	PreparedFreshnessWindow time.Duration // prepared 行を供給数に数える猶予
	TransferTokenTTL        time.Duration
	StuckScanAge            time.Duration

	// Metadata storage
	GCSBucket      string
	ArweaveBaseURL string // 空なら GCS アップローダを使う
	ArweaveAPIKey  string

	// HTTP
	CORSAllowedOrigin string

	// Ops
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirebaseProjectID        string
	OpsMailFrom              string
	OpsMailTo                string
	SendGridAPIKey           string
}

// Load は環境変数を読み込み Config を返します。
func Load() *Config {
	defaultProject := getenvDefault("GCP_PROJECT_ID", "fableforge-issuance")

	cfg := &Config{
		Port: getenvDefault("PORT", "8080"),

		DBHost:     getenvDefault("DB_HOST", "localhost"),
		DBPort:     getenvDefault("DB_PORT", "5432"),
		DBUser:     getenvDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getenvDefault("DB_NAME", "fableforge"),

		SolanaCluster:     getenvDefault("SOLANA_CLUSTER", "devnet"),
		SolanaRPCEndpoint: os.Getenv("SOLANA_RPC_ENDPOINT"),
		MerkleTreeAddress: os.Getenv("MERKLE_TREE_ADDRESS"),
		MintKeySecretName: os.Getenv("SOLANA_MINT_KEY_SECRET"),

		PreparedFreshnessWindow: getenvDuration("PREPARED_FRESHNESS_WINDOW", 10*time.Minute),
		TransferTokenTTL:        getenvDuration("TRANSFER_TOKEN_TTL", 5*time.Minute),
		StuckScanAge:            getenvDuration("STUCK_SCAN_AGE", 30*time.Minute),

		GCSBucket:      os.Getenv("GCS_BUCKET"),
		ArweaveBaseURL: os.Getenv("ARWEAVE_BASE_URL"),
		ArweaveAPIKey:  os.Getenv("ARWEAVE_API_KEY"),

		CORSAllowedOrigin: getenvDefault("CORS_ALLOWED_ORIGIN", "https://fableforge-app-dev.web.app"),

		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", defaultProject),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirebaseProjectID:        getenvDefault("FIREBASE_PROJECT_ID", defaultProject),
		OpsMailFrom:              os.Getenv("OPS_MAIL_FROM"),
		OpsMailTo:                os.Getenv("OPS_MAIL_TO"),
		SendGridAPIKey:           os.Getenv("SENDGRID_API_KEY"),
	}

	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvDuration は "10m" 形式、または秒数の整数を受け付けます。
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("[config] WARN: %s=%q is not a valid duration. default=%s", key, v, def)
	return def
}
