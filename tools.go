//go:build tools
// +build tools

// Package tools pins mockgen, which regenerates mocks/ from contract/
// through `go generate ./contract/...`.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
