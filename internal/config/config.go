package config

import (
	"flag"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	Mongo      Mongo      `yaml:"mongo" env-required:"true"`
	MinIO      MinIO      `yaml:"minio" env-required:"true"`
	AMQP       AMQP       `yaml:"amqp" env-required:"true"`
	Redis      Redis      `yaml:"redis" env-required:"true"`
	Upload     Upload     `yaml:"upload"`
	JWTSecret  string     `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type HTTPServer struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:"0.0.0.0:8080"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-required:"true"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"vidstream"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-required:"true"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID" env-required:"true"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY" env-required:"true"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type AMQP struct {
	URL string `yaml:"url" env:"AMQP_URL" env-required:"true"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-required:"true"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Upload struct {
	// MaxFileSize caps upload request bodies, in bytes.
	MaxFileSize int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" env-default:"1000000000"`
	// RateLimit is the number of uploads allowed per client IP per minute.
	RateLimit int64 `yaml:"rate_limit" env:"UPLOAD_RATE_LIMIT" env-default:"10"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
