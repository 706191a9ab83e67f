// Package config loads the process configuration from STORECORE_* env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storecore/internal/blob"
	s3store "storecore/internal/infra/blob/s3"
)

// Config is the resolved process configuration.
type Config struct {
	HTTPAddr        string
	DataDir         string
	StrictLoad      bool
	UsersCSV        string // path; empty falls back to the embedded table
	JWT             JWT
	Blob            blob.Config
	ShutdownTimeout time.Duration
}

// JWT selects token signing material. Key paths take precedence over the
// shared secret.
type JWT struct {
	PrivateKeyPath string
	PublicKeyPath  string
	Secret         string
	TTL            time.Duration
}

// Load resolves configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenv("STORECORE_HTTP_ADDR", ":8080"),
		DataDir:         getenv("STORECORE_DATA_DIR", "./data"),
		StrictLoad:      boolenv("STORECORE_STRICT_LOAD"),
		UsersCSV:        os.Getenv("STORECORE_USERS_CSV"),
		ShutdownTimeout: time.Duration(intenv("STORECORE_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		JWT: JWT{
			PrivateKeyPath: os.Getenv("STORECORE_JWT_PRIVATE_KEY"),
			PublicKeyPath:  os.Getenv("STORECORE_JWT_PUBLIC_KEY"),
			Secret:         os.Getenv("STORECORE_JWT_SECRET"),
			TTL:            time.Duration(intenv("STORECORE_JWT_TTL_MIN", 15)) * time.Minute,
		},
		Blob: blob.Config{
			Driver: blob.Driver(getenv("STORECORE_BLOB_DRIVER", string(blob.DriverFilesystem))),
			FSRoot: getenv("STORECORE_BLOB_FS_ROOT", "./imagedata"),
			S3: s3store.Config{
				Region:          os.Getenv("STORECORE_BLOB_S3_REGION"),
				Bucket:          os.Getenv("STORECORE_BLOB_S3_BUCKET"),
				Endpoint:        os.Getenv("STORECORE_BLOB_S3_ENDPOINT"),
				AccessKeyID:     os.Getenv("STORECORE_BLOB_S3_ACCESS_KEY"),
				SecretAccessKey: os.Getenv("STORECORE_BLOB_S3_SECRET_KEY"),
				PathStyle:       boolenv("STORECORE_BLOB_S3_PATH_STYLE"),
			},
		},
	}

	hasKeyPair := cfg.JWT.PrivateKeyPath != "" && cfg.JWT.PublicKeyPath != ""
	if (cfg.JWT.PrivateKeyPath != "") != (cfg.JWT.PublicKeyPath != "") {
		return Config{}, fmt.Errorf("STORECORE_JWT_PRIVATE_KEY and STORECORE_JWT_PUBLIC_KEY must be set together")
	}
	if !hasKeyPair && cfg.JWT.Secret == "" {
		return Config{}, fmt.Errorf("set STORECORE_JWT_SECRET or an RSA key pair")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolenv(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

func intenv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
