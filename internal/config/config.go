package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
	MasterKey   string `env:"MASTER_KEY"`
	UploadMaxMB int    `env:"UPLOAD_MAX_MB"`

	// Pipeline
	BlockSize      int `env:"BLOCK_SIZE"`
	BatchSize      int `env:"BATCH_SIZE"`
	EncryptWorkers int `env:"ENCRYPT_WORKERS"`
	DecryptWorkers int `env:"DECRYPT_WORKERS"`

	// Extraction / indexing (пусто — локальный сниффер и без индексации)
	TikaURL           string `env:"TIKA_URL"`
	DocumentServerURL string `env:"DOCUMENT_SERVER_URL"`

	// Spool: локальный каталог или S3-совместимый бакет
	SpoolDir      string `env:"SPOOL_DIR"`
	S3Endpoint    string `env:"S3_ENDPOINT"`
	S3Region      string `env:"S3_REGION"`
	S3Bucket      string `env:"S3_BUCKET"`
	S3AccessKey   string `env:"S3_ACCESS_KEY"`
	S3SecretKey   string `env:"S3_SECRET_KEY"`
	S3SpoolPrefix string `env:"S3_PREFIX"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	TokenFile string `env:"TOKEN_FILE"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.MasterKey, "master-key", cfg.MasterKey, "секрет для вывода мастер-ключа тенантов")
	flag.IntVar(&cfg.UploadMaxMB, "upload-max-mb", cfg.UploadMaxMB, "максимальный размер загрузки, MB")
	flag.IntVar(&cfg.BlockSize, "block-size", cfg.BlockSize, "размер блока, байт")
	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "блоков в батче")
	flag.IntVar(&cfg.EncryptWorkers, "encrypt-workers", cfg.EncryptWorkers, "размер общего пула задач шифрования")
	flag.IntVar(&cfg.DecryptWorkers, "decrypt-workers", cfg.DecryptWorkers, "число диапазонов расшифровки")
	flag.StringVar(&cfg.TikaURL, "tika-url", cfg.TikaURL, "адрес Apache Tika server")
	flag.StringVar(&cfg.DocumentServerURL, "document-server-url", cfg.DocumentServerURL, "адрес сервиса полнотекстовой индексации")
	flag.StringVar(&cfg.SpoolDir, "spool-dir", cfg.SpoolDir, "каталог временных файлов загрузки")
	flag.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "бакет S3 для временных файлов (пусто — локальный каталог)")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL of the DocVault server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "path to auth token file (client)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.MasterKey == "" {
		cfg.MasterKey = "dev-master-key"
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 512
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	if cfg.S3SpoolPrefix == "" {
		cfg.S3SpoolPrefix = "spool/"
	}
	// размеры блоков и числа воркеров: 0 — значения по умолчанию пайплайна

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.SpoolDir == "" {
		cfg.SpoolDir = filepath.Join(os.TempDir(), "docvault-spool")
	}
	home, _ := os.UserHomeDir()
	if cfg.TokenFile == "" {
		cfg.TokenFile = filepath.Join(home, ".docvault_token")
	}

	return cfg
}

// UploadMaxBytes — предел тела загрузки в байтах.
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) << 20
}
