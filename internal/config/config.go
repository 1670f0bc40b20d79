/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the booking-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	JWKSURL              string `mapstructure:"JWKS_URL"`

	PlatformFeePercent      float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	EscrowCoolingPeriodDays int     `mapstructure:"ESCROW_COOLING_PERIOD_DAYS"`
	ComplaintWindowHours    int     `mapstructure:"COMPLAINT_WINDOW_HOURS"`

	EscrowReleaseJobSchedule string `mapstructure:"ESCROW_RELEASE_JOB_SCHEDULE"`

	BookingCreateRateLimitPerMinute int `mapstructure:"BOOKING_CREATE_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "workhive:rate_limit")
	viper.SetDefault("PLATFORM_FEE_PERCENT", 0.0)
	viper.SetDefault("ESCROW_COOLING_PERIOD_DAYS", 3)
	viper.SetDefault("COMPLAINT_WINDOW_HOURS", 72)
	viper.SetDefault("ESCROW_RELEASE_JOB_SCHEDULE", "*/15 * * * *")
	viper.SetDefault("BOOKING_CREATE_RATE_LIMIT_PER_MINUTE", 10)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "BOOKING_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENT")
	_ = viper.BindEnv("ESCROW_COOLING_PERIOD_DAYS")
	_ = viper.BindEnv("COMPLAINT_WINDOW_HOURS")
	_ = viper.BindEnv("ESCROW_RELEASE_JOB_SCHEDULE")
	_ = viper.BindEnv("BOOKING_CREATE_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "workhive:rate_limit"
	}

	if config.PlatformFeePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative platform fee percent configured; coercing to zero\" fee_percent=%f", config.PlatformFeePercent)
		config.PlatformFeePercent = 0
	}
	if config.PlatformFeePercent > 100 {
		log.Printf("level=warn component=config msg=\"platform fee percent too high; capping at 100\" fee_percent=%f", config.PlatformFeePercent)
		config.PlatformFeePercent = 100
	}

	if config.EscrowCoolingPeriodDays < 0 {
		log.Printf("level=warn component=config msg=\"negative cooling period configured; coercing to zero\" days=%d", config.EscrowCoolingPeriodDays)
		config.EscrowCoolingPeriodDays = 0
	}
	if config.ComplaintWindowHours <= 0 {
		config.ComplaintWindowHours = 72
	}
	if strings.TrimSpace(config.EscrowReleaseJobSchedule) == "" {
		config.EscrowReleaseJobSchedule = "*/15 * * * *"
	}
	if config.BookingCreateRateLimitPerMinute < 0 {
		config.BookingCreateRateLimitPerMinute = 0
	}

	return
}
