// Package admin serves the broker's operational HTTP endpoints on a port
// separate from the binary protocol:
//
//	GET /health/live   always "ALIVE"
//	GET /health/ready  "READY" when every readiness check passes, 503 otherwise
//	GET /ping          204 No Content
//	GET /metrics       Prometheus exposition (WithGatherer)
//	GET /clients       active clients as JSON (WithDirectory)
//	GET /ws            WebSocket gateway to the broker protocol (WithWebSocket)
//
// Usage:
//
//	srv := admin.New(":5806",
//		admin.WithLogger(log),
//		admin.WithGatherer(registry),
//		admin.WithDirectory(handler.Directory()),
//		admin.WithWebSocket(handler),
//	)
//	g.Go(srv.Run(ctx))
package admin
