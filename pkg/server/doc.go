// Package server provides the read-only operator status API.
//
// # Routes
//
//   - GET / reports liveness and database connectivity
//   - GET /runs?provider=&limit= lists recent ingestion runs
//   - GET /metrics exposes the Prometheus registry
//
// When a JWT secret is configured, /runs requires an HS256 bearer token:
//
//	srv := server.NewServer(server.Config{Tenant: tenant, Port: "8080", JWTSecret: secret}, runs, ping, logger)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
package server
