package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Upload   UploadConfig
	WhatsApp WhatsAppConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type UploadConfig struct {
	Dir      string // directory the local image store writes into
	BaseURL  string // public prefix the stored files are served under
	MaxFiles int
	MaxBytes int64
}

type WhatsAppConfig struct {
	Number   string
	Template string
	Currency string
}

func Load() *Config {
	// .env is optional; real deployments configure through the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "4000")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("UPLOAD_BASE_URL", "/uploads")
	viper.SetDefault("UPLOAD_MAX_FILES", 10)
	viper.SetDefault("UPLOAD_MAX_BYTES", 5*1024*1024)
	viper.SetDefault("WHATSAPP_NUMBER", "929528308")
	viper.SetDefault("WHATSAPP_TEMPLATE", "Hola! Estoy interesado en {PRODUCT_NAME}, precio S/. {PRICE}")
	viper.SetDefault("WHATSAPP_CURRENCY", "S/.")

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Upload: UploadConfig{
			Dir:      viper.GetString("UPLOAD_DIR"),
			BaseURL:  viper.GetString("UPLOAD_BASE_URL"),
			MaxFiles: viper.GetInt("UPLOAD_MAX_FILES"),
			MaxBytes: viper.GetInt64("UPLOAD_MAX_BYTES"),
		},
		WhatsApp: WhatsAppConfig{
			Number:   viper.GetString("WHATSAPP_NUMBER"),
			Template: viper.GetString("WHATSAPP_TEMPLATE"),
			Currency: viper.GetString("WHATSAPP_CURRENCY"),
		},
	}
}
