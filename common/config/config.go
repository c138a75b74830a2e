package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	AWS      AWSConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	Server   ServerConfig
	NATS     NATSConfig
	Contest  ContestConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	UseLocalEndpoint bool
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type ServerConfig struct {
	HTTPPort    int
	Environment string
	LogLevel    string
	JWTSecret   string
	AdminSecret string
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type ContestConfig struct {
	LeaderboardTTLHours int
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configPath)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GYMSTREAK")

	viper.SetDefault("Contest.LeaderboardTTLHours", 168)
	viper.SetDefault("DynamoDB.MaxRetries", 3)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
