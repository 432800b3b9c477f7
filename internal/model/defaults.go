package model

import "time"

// Shared defaults used by both the server and client binaries.
const (
	DefaultTCPPort      = 8080
	DefaultAPIPort      = 8081
	DefaultBindHost     = "127.0.0.1"
	DefaultQueryTimeout = 30 * time.Second
)
