// Package api provides the HTTP REST API and WebSocket event feed for
// Doorman Core.
//
// It exposes session management, user/action/tag administration, device
// listings with live actor state, action dispatch, and the event log to
// wall panels, phones and the web admin.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Identity is resolved once per request from the sid cookie, the
// X-Session-ID header, or a sid field in a JSON body; routes then sit
// behind one of three tiers (anonymous, authenticated, admin).
package api
