package logging

import (
	"fmt"
	"log/slog"
	"time"
)

// Common field helpers for consistent structured logging

// Host creates the adapter host field
func Host(host string) slog.Attr {
	return slog.String("host", host)
}

// NodeID creates a MoCA node ID field
func NodeID(id int) slog.Attr {
	return slog.Int("node_id", id)
}

// Pair formats an ordered node pair
func Pair(from, to int) slog.Attr {
	return slog.String("pair", fmt.Sprintf("%d->%d", from, to))
}

// Endpoint creates a register endpoint field
func Endpoint(name string) slog.Attr {
	return slog.String("endpoint", name)
}

// Topic creates an MQTT topic field
func Topic(topic string) slog.Attr {
	return slog.String("topic", topic)
}

// Duration logs duration in milliseconds
func Duration(name string, d time.Duration) slog.Attr {
	return slog.Int64(name+"_ms", d.Milliseconds())
}

// Err creates error field
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Count creates count field
func Count(name string, count int) slog.Attr {
	return slog.Int(name+"_count", count)
}

// HTTP creates HTTP request fields
func HTTP(method, path string, status int) []any {
	return []any{
		slog.String("http_method", method),
		slog.String("http_path", path),
		slog.Int("http_status", status),
	}
}

// Worker creates worker ID field
func Worker(id int) slog.Attr {
	return slog.Int("worker_id", id)
}
