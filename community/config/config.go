/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the process configuration once at startup. Every
// other package receives values from the resulting Config instead of reading
// the environment itself.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-envconfig"
)

// Config is the full set of environment-provided settings.
type Config struct {
	// GitHubToken and GitHubOwner are optional; the gh CLI fills them in when
	// unset. GitHubOwner is both the repository owner and the default
	// identity.
	GitHubToken string `env:"GITHUB_TOKEN"`
	GitHubOwner string `env:"GITHUB_OWNER"`
	GitHubRepo  string `env:"GITHUB_REPO" validate:"required"`

	LLMBaseURL  string `env:"LLM_BASE_URL,default=https://api.openai.com/v1" validate:"required,url"`
	LLMAPIKey   string `env:"LLM_API_KEY" validate:"required"`
	LLMModel    string `env:"LLM_MODEL,default=gpt-4o-mini" validate:"required"`
	LLMProvider string `env:"LLM_PROVIDER" validate:"omitempty,oneof=openai anthropic google"`

	// AgentName defaults to the resolved GitHub username.
	AgentName string `env:"AGENT_NAME"`

	PostCron    string `env:"POST_CRON,default=0 */4 * * *" validate:"cronspec"`
	CommentCron string `env:"COMMENT_CRON,default=30 */2 * * *" validate:"cronspec"`

	MetricsPort          int           `env:"METRICS_PORT,default=0" validate:"gte=0,lte=65535"`
	ForkPropagationDelay time.Duration `env:"FORK_PROPAGATION_DELAY,default=5s" validate:"gte=0"`
}

// LoadDotEnv loads path (".env" when empty) into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads the Config from the process environment. It does not validate;
// commands that need a complete configuration call Validate.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the Config through l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		return name
	})
	if err := v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate reports every invalid setting, one per line, by variable name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "cronspec":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a five-field cron expression", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: %v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "\n"))
}

// ApplyIdentity fills the owner and agent name from the resolved GitHub
// username where they were not set explicitly.
func (c *Config) ApplyIdentity(username string) {
	if c.GitHubOwner == "" {
		c.GitHubOwner = username
	}
	if c.AgentName == "" {
		c.AgentName = username
	}
}

// Repository returns "owner/repo".
func (c *Config) Repository() string {
	return c.GitHubOwner + "/" + c.GitHubRepo
}
