package realtime

import "time"

const (
	// Max bytes per websocket frame read. Client frames are tiny control messages.
	maxFrameBytes = 4 << 10

	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection inbound frame budget.
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second
)
