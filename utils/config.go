package utils

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultCustodianUrl = "http://127.0.0.1:8000/custodian"
)

type AppConfig struct {
	ServiceDomain       string
	ServiceAuthSecret   string
	CustodianUrl        string
	RequestTimeout      time.Duration
	TransportRetryMax   int
	TransportRetryPause time.Duration
	RecordUploadRate    float64
	MetricsFile         string
	SentryDsn           string
	LogLevel            string
}

//Returns the path of the dotenv file: ENV_FILE if set, ".env" of the working directory otherwise
func envFilePath() string {
	if path := os.Getenv("ENV_FILE"); len(path) > 0 {
		return path
	}
	workDir, err := os.Getwd()
	if err != nil {
		return ".env"
	}
	return workDir + "/.env"
}

//GetConfig reads the configuration from the process environment, values of the dotenv file
//do not override variables which are already set.
func GetConfig() *AppConfig {
	godotenv.Load(envFilePath())

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("CUSTODIAN_URL", DefaultCustodianUrl)
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("TRANSPORT_RETRY_MAX", 0)
	v.SetDefault("TRANSPORT_RETRY_PAUSE", time.Second)
	v.SetDefault("RECORD_UPLOAD_RATE", 0)
	v.SetDefault("LOG_LEVEL", "info")

	return &AppConfig{
		ServiceDomain:       v.GetString("SERVICE_DOMAIN"),
		ServiceAuthSecret:   v.GetString("SERVICE_AUTH_SECRET"),
		CustodianUrl:        v.GetString("CUSTODIAN_URL"),
		RequestTimeout:      v.GetDuration("REQUEST_TIMEOUT"),
		TransportRetryMax:   v.GetInt("TRANSPORT_RETRY_MAX"),
		TransportRetryPause: v.GetDuration("TRANSPORT_RETRY_PAUSE"),
		RecordUploadRate:    v.GetFloat64("RECORD_UPLOAD_RATE"),
		MetricsFile:         v.GetString("METRICS_FILE"),
		SentryDsn:           v.GetString("SENTRY_DSN"),
		LogLevel:            v.GetString("LOG_LEVEL"),
	}
}
