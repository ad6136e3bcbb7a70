package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Credentials holds every external API credential the pipeline can use.
// All of them are optional: a missing credential switches the component
// that needs it into its fallback mode instead of failing startup.
type Credentials struct {
	OpenAIKey     string
	FREDKey       string
	LinkedInToken string
	Twitter       TwitterCredentials
	TelegramToken string
	TelegramChat  int64
}

// TwitterCredentials is the four-value credential set for the Twitter API.
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Configured reports whether the full credential set is present.
func (tc TwitterCredentials) Configured() bool {
	return tc.APIKey != "" && tc.APISecret != "" && tc.AccessToken != "" && tc.AccessSecret != ""
}

// Schedule holds the wall-clock trigger times for the daily workflow.
type Schedule struct {
	GenerationTime  string `yaml:"generation_time"`
	LongArticleDay  string `yaml:"long_article_day"`
	WeekendPrepDay  string `yaml:"weekend_prep_day"`
	WeekendPrepTime string `yaml:"weekend_prep_time"`
}

// Pipeline is the behavioral configuration loaded from pipeline.yaml.
type Pipeline struct {
	DataDir        string   `yaml:"data_dir"`
	AutoPost       bool     `yaml:"auto_post"`
	ReviewRequired bool     `yaml:"review_required"`
	Platforms      []string `yaml:"platforms"`
	Schedule       Schedule `yaml:"schedule"`
	Topics         []string `yaml:"topics"`
	ServerAddr     string   `yaml:"server_addr"`
}

// DefaultTopics is the rotation list used when the config file does not
// override it.
var DefaultTopics = []string{
	"Midwest multifamily market surge",
	"Gateway market renaissance",
	"Sun Belt oversupply challenges",
	"Interest rate impact on CRE",
	"Capital flows and liquidity trends",
	"Development pipeline analysis",
	"Regional market spotlights",
	"Investment strategy shifts",
	"Brokerage market dynamics",
	"Debt markets evolution",
	"Institutional capital allocation",
	"Supply-demand imbalances",
	"Rent growth trajectories",
	"Construction cost impacts",
	"Technology in CRE",
}

// DefaultPipeline returns the configuration used when no pipeline.yaml
// exists. Auto-posting is off and review is required, matching the
// conservative single-operator default.
func DefaultPipeline() Pipeline {
	return Pipeline{
		DataDir:        "data",
		AutoPost:       false,
		ReviewRequired: true,
		Platforms:      []string{"linkedin"},
		Schedule: Schedule{
			GenerationTime:  "08:00",
			LongArticleDay:  "tuesday",
			WeekendPrepDay:  "friday",
			WeekendPrepTime: "17:00",
		},
		Topics:     DefaultTopics,
		ServerAddr: ":8080",
	}
}

// LoadPipeline reads the pipeline configuration file, layering it over
// the defaults. A missing file is not an error.
func LoadPipeline(path string) (Pipeline, error) {
	cfg := DefaultPipeline()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read pipeline config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse pipeline config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return cfg, fmt.Errorf("validate pipeline config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Pipeline) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = []string{"linkedin"}
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = DefaultTopics
	}
	for _, field := range []struct{ name, value string }{
		{"generation_time", cfg.Schedule.GenerationTime},
		{"weekend_prep_time", cfg.Schedule.WeekendPrepTime},
	} {
		if _, _, err := ParseClock(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	cfg.Schedule.LongArticleDay = strings.ToLower(cfg.Schedule.LongArticleDay)
	cfg.Schedule.WeekendPrepDay = strings.ToLower(cfg.Schedule.WeekendPrepDay)
	return nil
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// LoadCredentials loads .env when present and reads the credential set
// from the environment.
func LoadCredentials() Credentials {
	// Missing .env just means the credentials come from the process
	// environment.
	_ = godotenv.Load()

	creds := Credentials{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		FREDKey:       os.Getenv("FRED_API_KEY"),
		LinkedInToken: os.Getenv("LINKEDIN_ACCESS_TOKEN"),
		Twitter: TwitterCredentials{
			APIKey:       os.Getenv("TWITTER_API_KEY"),
			APISecret:    os.Getenv("TWITTER_API_SECRET"),
			AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
			AccessSecret: os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"),
		},
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			creds.TelegramChat = id
		}
	}
	return creds
}
