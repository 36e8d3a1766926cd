package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey string `mapstructure:"secretKey"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type LLMConfig struct {
	Provider       string        `mapstructure:"provider"` // gemini | openai
	Model          string        `mapstructure:"model"`
	GeminiAPIKey   string        `mapstructure:"geminiAPIKey"`
	OpenAIAPIKey   string        `mapstructure:"openaiAPIKey"`
	Temperature    float32       `mapstructure:"temperature"`
	RequestsPerSec float64       `mapstructure:"requestsPerSec"`
	Burst          int           `mapstructure:"burst"`
	AttemptTimeout time.Duration `mapstructure:"attemptTimeout"`
}

type PlanningConfig struct {
	Gateway        string        `mapstructure:"gateway"` // llm | http
	HTTPURL        string        `mapstructure:"httpURL"`
	DailyStart     string        `mapstructure:"dailyStart"`
	DailyEnd       string        `mapstructure:"dailyEnd"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	BackoffBase    time.Duration `mapstructure:"backoffBase"`
	AttemptTimeout time.Duration `mapstructure:"attemptTimeout"`
}

type GenerationConfig struct {
	MaxAttempts    int            `mapstructure:"maxAttempts"`
	MaxStayingDays int            `mapstructure:"maxStayingDays"`
	MaxPOICount    int            `mapstructure:"maxPOICount"`
	POIsPerDay     map[string]int `mapstructure:"poisPerDay"`
}

type WorkerConfig struct {
	Queue       string        `mapstructure:"queue"` // memory | redis
	Workers     int           `mapstructure:"workers"`
	Buffer      int           `mapstructure:"buffer"`
	TaskTimeout time.Duration `mapstructure:"taskTimeout"`
	QueueKey    string        `mapstructure:"queueKey"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort     string        `mapstructure:"HTTPPort"`
		Timeout      time.Duration `mapstructure:"HTTPTimeout"`
		ReadTimeout  time.Duration `mapstructure:"readTimeout"`
		WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	} `mapstructure:"server"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Planning   PlanningConfig   `mapstructure:"planning"`
	Generation GenerationConfig `mapstructure:"generation"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Cache      struct {
		ActivePlanTTL time.Duration `mapstructure:"activePlanTTL"`
	} `mapstructure:"cache"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// TRIP_LLM_GEMINIAPIKEY overrides llm.geminiAPIKey and so on.
	v.SetEnvPrefix("TRIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.applyDefaults()
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// applyDefaults fills values a partial config file may leave at zero.
func (c *Config) applyDefaults() {
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = 3
	}
	if c.Generation.MaxStayingDays <= 0 {
		c.Generation.MaxStayingDays = 7
	}
	if c.Generation.MaxPOICount <= 0 {
		c.Generation.MaxPOICount = 16
	}
	if len(c.Generation.POIsPerDay) == 0 {
		c.Generation.POIsPerDay = map[string]int{"relaxed": 2, "moderate": 3, "packed": 5}
	}
	if c.Planning.MaxAttempts <= 0 {
		c.Planning.MaxAttempts = 3
	}
	if c.Planning.BackoffBase <= 0 {
		c.Planning.BackoffBase = time.Second
	}
	if c.Planning.DailyStart == "" {
		c.Planning.DailyStart = "09:00"
	}
	if c.Planning.DailyEnd == "" {
		c.Planning.DailyEnd = "20:00"
	}
	if c.Worker.Workers <= 0 {
		c.Worker.Workers = 2
	}
	if c.Worker.QueueKey == "" {
		c.Worker.QueueKey = "trip:generation:tasks"
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 300 * time.Second
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = c.Server.Timeout + 10*time.Second
	}
	if c.Cache.ActivePlanTTL <= 0 {
		c.Cache.ActivePlanTTL = 10 * time.Minute
	}
}
