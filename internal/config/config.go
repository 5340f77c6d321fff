// Package config provides configuration loading, validation, and management
// for the bot. Values come from built-in defaults, an optional YAML file,
// an optional .env file and the process environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components.
type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Completion CompletionConfig `mapstructure:"completion"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

// TelegramConfig holds the bot credentials and the administrator identity.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-" validate:"-"`
}

// CompletionConfig configures the hosted completion service used when the
// knowledge base has no answer.
type CompletionConfig struct {
	Provider          string        `mapstructure:"provider"           validate:"oneof=openrouter gemini"`
	APIKey            string        `mapstructure:"api_key"            validate:"required"`
	URL               string        `mapstructure:"url"                validate:"required,url"`
	Model             string        `mapstructure:"model"              validate:"required"`
	MaxTokens         int           `mapstructure:"max_tokens"         validate:"gt=0"`
	Temperature       float32       `mapstructure:"temperature"        validate:"min=0,max=2"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"min=1s,max=10m"`
	SystemInstruction string        `mapstructure:"system_instruction" validate:"required"`
	SiteURL           string        `mapstructure:"site_url"`
	AppName           string        `mapstructure:"app_name"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=json sqlite"`
	Dir    string `mapstructure:"dir"    validate:"required_if=Driver json"`
	Path   string `mapstructure:"path"   validate:"required_if=Driver sqlite"`
}

// LoggerConfig controls log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TaskConfig enables a scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their configuration.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// MessagesConfig holds every user-facing reply text.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"`
	NotAuthorized    string `mapstructure:"not_authorized"`
	AdminPanelFmt    string `mapstructure:"admin_panel_fmt"`
	Waiting          string `mapstructure:"waiting"`
	GeneralError     string `mapstructure:"general_error"`
	StatsFmt         string `mapstructure:"stats_fmt"`
	NoUsers          string `mapstructure:"no_users"`
	UsersHeader      string `mapstructure:"users_header"`
	UserEntryFmt     string `mapstructure:"user_entry_fmt"`
	AddInfoUsage     string `mapstructure:"add_info_usage"`
	AddInfoBadFormat string `mapstructure:"add_info_bad_format"`
	AddInfoSaved     string `mapstructure:"add_info_saved"`
	KnowledgeEmpty   string `mapstructure:"knowledge_empty"`
	KnowledgeHeader  string `mapstructure:"knowledge_header"`
	KnowledgeItemFmt string `mapstructure:"knowledge_item_fmt"`
	KnowledgeTrimmed string `mapstructure:"knowledge_trimmed"`

	BroadcastUsage       string `mapstructure:"broadcast_usage"`
	BroadcastBadKind     string `mapstructure:"broadcast_bad_kind"`
	BroadcastAskText     string `mapstructure:"broadcast_ask_text"`
	BroadcastAskPhoto    string `mapstructure:"broadcast_ask_photo"`
	BroadcastAskVideo    string `mapstructure:"broadcast_ask_video"`
	BroadcastConfirmFmt  string `mapstructure:"broadcast_confirm_fmt"`
	BroadcastSending     string `mapstructure:"broadcast_sending"`
	BroadcastDoneFmt     string `mapstructure:"broadcast_done_fmt"`
	BroadcastFailedIDs   string `mapstructure:"broadcast_failed_ids"`
	BroadcastCancelled   string `mapstructure:"broadcast_cancelled"`
	CompletionStatusFmt  string `mapstructure:"completion_status_fmt"`
	CompletionConnection string `mapstructure:"completion_connection"`
	CompletionUnexpected string `mapstructure:"completion_unexpected"`
	DailyReportHeader    string `mapstructure:"daily_report_header"`
}

// ValidationError lists every configuration problem found, so operators can
// fix all of them in one go.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string]string{
	"telegram.token":         "BOT_TOKEN",
	"telegram.admin_user_id": "ADMIN_ID",
	"completion.api_key":     "OPENROUTER_API_KEY",
	"completion.url":         "OPENROUTER_API_URL",
	"completion.provider":    "COMPLETION_PROVIDER",
	"completion.model":       "COMPLETION_MODEL",
	"storage.driver":         "STORAGE_DRIVER",
	"storage.dir":            "STORAGE_DIR",
	"storage.path":           "STORAGE_PATH",
	"logger.level":           "LOG_LEVEL",
	"logger.json":            "LOG_JSON",
	"metrics.listen":         "METRICS_LISTEN",
}

// defaultModels is the model used per provider when completion.model is unset.
var defaultModels = map[string]string{
	"openrouter": "google/gemini-pro-1.5",
	"gemini":     "gemini-2.0-flash",
}

// hints turns a failed field into the message operators see at startup.
var hints = map[string]string{
	"Telegram.Token":       "telegram bot token not found (set BOT_TOKEN)",
	"Telegram.AdminUserID": "administrator id not found or not a positive integer (set ADMIN_ID)",
	"Completion.APIKey":    "completion API key not found (set OPENROUTER_API_KEY)",
}

// LoadConfig reads configuration from the YAML file at path (optional, may not
// exist), the .env file in the working directory (optional) and the
// environment, then validates the result.
//
// On validation failure the returned error is a *ValidationError listing all problems.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	// A non-numeric admin id is reported like a missing one instead of as a decode error.
	if raw := strings.TrimSpace(v.GetString("telegram.admin_user_id")); raw != "" {
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			v.Set("telegram.admin_user_id", 0)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = defaultModels[cfg.Completion.Provider]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and returns a *ValidationError describing
// every failed field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := strings.TrimPrefix(fe.StructNamespace(), "Config.")
		if hint, ok := hints[name]; ok {
			problems = append(problems, hint)
			continue
		}
		problems = append(problems, fmt.Sprintf("%s failed %q validation (value %v)", name, fe.Tag(), fe.Value()))
	}
	return &ValidationError{Problems: problems}
}

// IsAdmin reports whether userID is the configured administrator.
func (c *Config) IsAdmin(userID int64) bool {
	return userID != 0 && userID == c.Telegram.AdminUserID
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.path", "storage.db")

	v.SetDefault("completion.provider", "openrouter")
	v.SetDefault("completion.url", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("completion.max_tokens", 1000)
	v.SetDefault("completion.temperature", 0.7)
	v.SetDefault("completion.timeout", 30*time.Second)
	v.SetDefault("completion.system_instruction",
		"You are the school assistant. Answer only from the information you were given. "+
			"If the answer is not known to you, say that you do not have that information.")
	v.SetDefault("completion.app_name", "askbot")

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 3 * * *"},
		"daily_report":    map[string]any{"enabled": false, "schedule": "0 0 21 * * *"},
	})

	v.SetDefault("messages.welcome", "👋 Hello! Send me your question and I will answer it.\n\n"+
		"💡 Just type the question as a regular message.")
	v.SetDefault("messages.not_authorized", "❌ You are not an administrator!")
	v.SetDefault("messages.admin_panel_fmt", "🛠️ Admin panel\n\n"+
		"/stats - bot statistics\n"+
		"/users - list users\n"+
		"/add_info - add a knowledge entry\n"+
		"/view_knowledge - show the knowledge base\n"+
		"/broadcast - send a message to everyone\n\n"+
		"🆔 Your ID: %d")
	v.SetDefault("messages.waiting", "⏳ Preparing the answer...")
	v.SetDefault("messages.general_error", "❌ Something went wrong. Please try again later.")
	v.SetDefault("messages.stats_fmt", "📊 Statistics\n\n"+
		"👥 Total users: %d\n"+
		"❓ Total questions: %d\n"+
		"🔥 Active today: %d")
	v.SetDefault("messages.no_users", "📭 There are no users yet.")
	v.SetDefault("messages.users_header", "👥 Users:\n\n")
	v.SetDefault("messages.user_entry_fmt", "%d. ID: %d\n   Name: %s\n   Username: @%s\n   Questions: %d\n")
	v.SetDefault("messages.add_info_usage", "❌ Send the entry as:\n/add_info Question? - Answer\n\n"+
		"Example:\n/add_info When does school start? - School starts on September 1")
	v.SetDefault("messages.add_info_bad_format", "❌ Wrong format. Use: Question? - Answer")
	v.SetDefault("messages.add_info_saved", "✅ Knowledge entry saved!")
	v.SetDefault("messages.knowledge_empty", "📭 The knowledge base is empty.")
	v.SetDefault("messages.knowledge_header", "📚 Knowledge base:\n\n")
	v.SetDefault("messages.knowledge_item_fmt", "%d. ❓ %s\n   ✅ %s\n\n")
	v.SetDefault("messages.knowledge_trimmed", "... (the rest was cut off)")

	v.SetDefault("messages.broadcast_usage", "📢 Broadcast\n\nChoose the kind:\n\n"+
		"/broadcast text - text message\n"+
		"/broadcast photo - photo with caption\n"+
		"/broadcast video - video with caption")
	v.SetDefault("messages.broadcast_bad_kind", "❌ Unknown kind. Only: text, photo, video")
	v.SetDefault("messages.broadcast_ask_text", "📝 Send the text to broadcast:")
	v.SetDefault("messages.broadcast_ask_photo", "🖼️ Send the photo to broadcast (photo + caption):")
	v.SetDefault("messages.broadcast_ask_video", "🎥 Send the video to broadcast (video + caption):")
	v.SetDefault("messages.broadcast_confirm_fmt", "✅ Received!\n\n%s\n\nSend it to everyone? (yes / no)")
	v.SetDefault("messages.broadcast_sending", "🔄 Sending the broadcast...")
	v.SetDefault("messages.broadcast_done_fmt", "✅ Broadcast finished!\n\n✅ Delivered: %d\n❌ Failed: %d")
	v.SetDefault("messages.broadcast_failed_ids", "\n\nFailed recipients: ")
	v.SetDefault("messages.broadcast_cancelled", "❌ Broadcast cancelled.")
	v.SetDefault("messages.completion_status_fmt", "❌ The answer service returned an error (status: %d)")
	v.SetDefault("messages.completion_connection", "❌ Could not connect to the answer service")
	v.SetDefault("messages.completion_unexpected", "❌ Unexpected error while preparing the answer")
	v.SetDefault("messages.daily_report_header", "🗓️ Daily report\n\n")
}
