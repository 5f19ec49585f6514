package config

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   database DSN (postgres://... or sqlite://...)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-t int      presigned upload URL validity, minutes
//	-v int      presigned display URL validity, minutes
//	-i string   placeholder image file
//	-m int      max upload size, bytes
//	-o string   comma-separated CORS origins
//	-l string   log level
//	-permissive bool  disable title/rating validation
//
// args are filtered with flagx.FilterArgs first so -c/-config and unknown
// flags do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-d", "-u", "-p", "-b", "-g", "-e", "-t", "-v", "-i", "-m", "-o", "-l", "-permissive",
	})

	fs := flag.NewFlagSet("recipebox", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	uploadExpiry := fs.Int("t", int(config.UploadURLExpiry.Minutes()), "upload URL validity (in minutes)")
	displayExpiry := fs.Int("v", int(config.DisplayURLExpiry.Minutes()), "display URL validity (in minutes)")

	fs.StringVar(&config.PlaceholderPath, "i", config.PlaceholderPath, "placeholder image file")
	fs.Int64Var(&config.MaxUploadBytes, "m", config.MaxUploadBytes, "max upload size in bytes")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "comma-separated CORS origins")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.PermissiveValidation, "permissive", config.PermissiveValidation, "accept blank titles and out-of-range ratings")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.UploadURLExpiry = time.Duration(*uploadExpiry) * time.Minute
	config.DisplayURLExpiry = time.Duration(*displayExpiry) * time.Minute
	config.AllowedOrigins = splitOrigins(*origins)
	return nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
