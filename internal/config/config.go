package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/dgallion1/cmsprep/internal/cms"
)

type Config struct {
	// CMS connection
	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`

	// Public site used to build page URLs
	WebHost string `validate:"required,url"`

	// Logging
	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=text json"`

	// PDF
	WKHTMLToPDFPath string
}

// LoadEnv loads variables from the given .env files (default ".env") into
// the process environment. Missing files are not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		APIKey:  os.Getenv("BUTTERCMS_API_KEY"),
		BaseURL: envOr("BUTTERCMS_BASE_URL", cms.DefaultBaseURL),
		WebHost: os.Getenv("WEB_HOST"),

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "text")),

		WKHTMLToPDFPath: envOr("WKHTMLTOPDF_PATH", "wkhtmltopdf"),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// envNames maps struct fields to the variables they come from, for errors.
var envNames = map[string]string{
	"APIKey":    "BUTTERCMS_API_KEY",
	"BaseURL":   "BUTTERCMS_BASE_URL",
	"WebHost":   "WEB_HOST",
	"LogLevel":  "LOG_LEVEL",
	"LogFormat": "LOG_FORMAT",
}

// Validate checks every field a fetch needs.
func (c Config) Validate() error {
	return describe(validate.Struct(c))
}

// ValidateLogging checks only the logging fields, for commands that never
// talk to the CMS.
func (c Config) ValidateLogging() error {
	return describe(validate.StructPartial(c, "LogLevel", "LogFormat"))
}

// ValidateCMS checks the fields needed to call the API without building URLs.
func (c Config) ValidateCMS() error {
	return describe(validate.StructPartial(c, "APIKey", "BaseURL", "LogLevel", "LogFormat"))
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a URL, got %q", name, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s has invalid value %q", name, fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
