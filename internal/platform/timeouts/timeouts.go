// Package timeouts defines shared timeout constants used across Bloomy
// processes so the durations stay discoverable in one place.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the health endpoint.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long the HTTP API waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second

// StoreProbe caps the startup capability probe of the persistent store.
const StoreProbe = 3 * time.Second

// NotificationPrompt is how long after startup the one-shot notification
// opt-in prompt appears.
const NotificationPrompt = 5 * time.Second

// WebsocketWrite caps a single websocket frame write.
const WebsocketWrite = 10 * time.Second
