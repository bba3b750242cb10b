// Package api provides the operator HTTP API and WebSocket stream for the
// parcel box.
//
// Routes live under /api/v1. Health and login are public; everything else
// needs a Bearer access token from POST /auth/login. WebSocket clients
// authenticate with a single-use ticket, receive "box.state_changed"
// events and may send operator commands.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
