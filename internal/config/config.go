package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Tokens     `yaml:"tokens"`
	Secrets    `yaml:"secrets"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	SMTP       `yaml:"smtp"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disabled"`
}

type Redis struct {
	Addr     string `yaml:"addr" env-default:"redis:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"1"`
}

type Tokens struct {
	AccessTokenTTL      time.Duration `yaml:"access_token_ttl" env-default:"168h"`
	VerificationCodeTTL time.Duration `yaml:"verification_code_ttl" env-default:"1h"`
	ResetCodeTTL        time.Duration `yaml:"reset_code_ttl" env-default:"1h"`
}

// Secrets controls where the token signing key comes from. With SSM
// enabled the key is fetched once at startup from Parameter Store;
// otherwise SigningKey is used as-is (local runs and tests).
type Secrets struct {
	SSMEnabled     bool   `yaml:"ssm_enabled" env-default:"false"`
	SigningKeyName string `yaml:"signing_key_name" env-default:"app_secret_key"`
	SigningKey     string `yaml:"signing_key" env:"SIGNING_KEY" env-default:""`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env-required:"true"`
	QueueName string `yaml:"queue_name" env-required:"true"`
}

type SMTP struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username" env-default:""`
	Password string `yaml:"password" env-default:""`
	From     string `yaml:"from" env-default:"noreply@example.com"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
