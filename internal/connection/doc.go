// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Maintains one long-lived WebSocket session to the exchange feed
//   - Subscribes to a fixed channel for a fixed product set
//   - Normalizes accepted trade frames and forwards them to the buffer
//   - Handles reconnection with exponential backoff (never fatal)
//   - Detects stale connections via keepalive pings
package connection
