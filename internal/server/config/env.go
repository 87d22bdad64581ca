package config

import (
	"os"
	"strconv"
)

// parseEnv overlays secret-bearing settings from environment variables.
// Environment wins over flags so secrets never have to be passed on the
// command line.
//
// Recognized variables:
//
//	CONTACTHUB_SECRET_KEY
//	CONTACTHUB_DATABASE_DSN
//	CONTACTHUB_REDIS_ADDR
//	CONTACTHUB_SMTP_HOST / CONTACTHUB_SMTP_PORT
//	CONTACTHUB_SMTP_USER / CONTACTHUB_SMTP_PASSWORD
//	CONTACTHUB_MAIL_FROM
//	CONTACTHUB_S3_USER / CONTACTHUB_S3_PASSWORD
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("CONTACTHUB_SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_REDIS_ADDR"); ok {
		config.RedisAddr = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_SMTP_HOST"); ok {
		config.SMTPHost = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_SMTP_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = port
		}
	}
	if v, ok := os.LookupEnv("CONTACTHUB_SMTP_USER"); ok {
		config.SMTPUser = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_SMTP_PASSWORD"); ok {
		config.SMTPPassword = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_MAIL_FROM"); ok {
		config.MailFrom = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_S3_USER"); ok {
		config.S3RootUser = v
	}
	if v, ok := os.LookupEnv("CONTACTHUB_S3_PASSWORD"); ok {
		config.S3RootPassword = v
	}
}
