package main

import (
	"strings"
	"time"
)

type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	Host                 string        `env:"HOST,default=localhost"`
	GRPCPort             int           `env:"GRPC_PORT,default=50051"`
	HTTPPort             int           `env:"HTTP_PORT,default=8080"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=10s"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	AuthSecret           string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	TypingRate           time.Duration `env:"TYPING_RATE,default=500ms"`
	TypingBurst          int           `env:"TYPING_BURST,default=3"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ReaperInterval       time.Duration `env:"REAPER_INTERVAL,default=30s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	WSOriginPatterns     string        `env:"WS_ORIGIN_PATTERNS"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

func (c Config) OriginPatterns() []string { return splitList(c.WSOriginPatterns) }

func (c Config) CensoredWordList() []string { return splitList(c.CensoredWords) }

// splitList reads a comma separated setting, blanks dropped.
func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
