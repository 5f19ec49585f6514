package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/recipebox/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "15m" strings and integer nanoseconds. Zero values leave the current
// setting untouched, except permissive_validation which is only applied
// when present.
type JsonConfig struct {
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	DatabaseDSN          string         `json:"database_dsn"`
	S3RootUser           string         `json:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	UploadURLExpiry      timex.Duration `json:"upload_url_expiry"`
	DisplayURLExpiry     timex.Duration `json:"display_url_expiry"`
	PlaceholderPath      string         `json:"placeholder_path"`
	MaxUploadBytes       int64          `json:"max_upload_bytes"`
	PermissiveValidation *bool          `json:"permissive_validation"`
	AllowedOrigins       []string       `json:"allowed_origins"`
	LogLevel             string         `json:"log_level"`
}

// parseJson overlays values from the JSON file at path onto config.
// An empty path is a no-op.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.PlaceholderPath, c.PlaceholderPath)
	setString(&config.LogLevel, c.LogLevel)

	if c.UploadURLExpiry.Duration > 0 {
		config.UploadURLExpiry = c.UploadURLExpiry.Duration
	}
	if c.DisplayURLExpiry.Duration > 0 {
		config.DisplayURLExpiry = c.DisplayURLExpiry.Duration
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.PermissiveValidation != nil {
		config.PermissiveValidation = *c.PermissiveValidation
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
