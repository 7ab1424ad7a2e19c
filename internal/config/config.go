package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetTokenFile() string
	GetDownloadDir() string
	GetUploadTimeoutMS() int
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

// New loads an optional .env file and returns the environment backed config.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
