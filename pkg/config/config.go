package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/brtkpo/RestaurantApp/pkg/utils"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP     `yaml:"http"`
	Postgres PG       `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Auth     Auth     `yaml:"auth"`
	Payment  Payment  `yaml:"payment"`
	Limiter  Limiter  `yaml:"limiter"`
	Frontend Frontend `yaml:"frontend"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":8000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL            string `yaml:"url" env:"DB_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"restaurant-app"`
	Topic   string   `yaml:"topic" env:"KAFKA_NOTIFICATION_TOPIC" env-default:"notification_events"`
}

type Auth struct {
	AccessSecret string `yaml:"access_secret" env:"ACCESS_SECRET"`
}

type Payment struct {
	ProviderURL string        `yaml:"provider_url" env:"PAYMENT_PROVIDER_URL"`
	SecretKey   string        `yaml:"secret_key" env:"PAYMENT_SECRET_KEY"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

type Frontend struct {
	SuccessURL string `yaml:"success_url" env:"FRONTEND_SUCCESS_URL" env-default:"http://localhost:3000/order"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
