package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	appNameVar       = "APP_NAME"
	apiBaseURLVar    = "API_BASE_URL"
	tokenFileVar     = "TOKEN_FILE"
	downloadDirVar   = "DOWNLOAD_DIR"
	uploadTimeoutVar = "UPLOAD_TIMEOUT_MS"
	logLevelVar      = "LOG_LEVEL"

	defaultAPIBaseURL = "http://localhost:8000/api"

	// File/vision analysis can legitimately take minutes server side.
	defaultUploadTimeoutMS = 180_000
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Agent Dash")
}

// GetAPIBaseURL returns the root every backend path is resolved against.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, defaultAPIBaseURL)
}

// GetTokenFile returns the path of the durable token slots file.
func (EnvVars) GetTokenFile() string {
	if v := os.Getenv(tokenFileVar); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".agentdash", "tokens.json")
	}
	return filepath.Join(home, ".agentdash", "tokens.json")
}

func (EnvVars) GetDownloadDir() string {
	return GetEnv(downloadDirVar, ".")
}

func (EnvVars) GetUploadTimeoutMS() int {
	v, err := strconv.Atoi(GetEnv(uploadTimeoutVar, ""))
	if err != nil || v <= 0 {
		return defaultUploadTimeoutMS
	}
	return v
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
