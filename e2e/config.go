package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_GRPC_ADDR is the relay under test, the suite is skipped when empty
	GrpcAddr   string `envconfig:"E2E_GRPC_ADDR"`
	AuthSecret string `envconfig:"E2E_AUTH_SECRET"`
	// E2E_CHAT_ID must be a chat whose roster holds both users below
	ChatID      string `envconfig:"E2E_CHAT_ID"`
	SenderID    string `envconfig:"E2E_SENDER_ID" default:"alice"`
	RecipientID string `envconfig:"E2E_RECIPIENT_ID" default:"bob"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
