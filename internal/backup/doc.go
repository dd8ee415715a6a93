// Package backup drives a snapshot round trip through a hassio.Gateway:
// announce, create, announce completion, then refresh the sensors Home
// Assistant shows. Timestamps come from an injected clockwork.Clock.
package backup
