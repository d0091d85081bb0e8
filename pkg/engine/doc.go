// Package engine serves mocked JSON responses over HTTP.
//
// # Architecture
//
//	spec file ──► config.Loader ──► config.Spec
//	                                   │
//	               store.Load ◄────────┤ response sources
//	                   │               │
//	                   ▼               ▼
//	              engine.Build ──► RouteTable ──► Dispatcher
//	                                                  │
//	                     Server (:4280) ◄── Handler ◄─┘
//	                           │
//	                     requestlog.Store (optional)
//	                           │
//	                     Admin  (:4290) ◄── /health /ready /routes /metrics /requests
//
// Everything left of the Dispatcher runs once at startup. The route table is
// read-only afterwards, so dispatch takes no locks.
//
// # Basic Usage
//
//	spec, _ := config.Load(ctx, "mockan.yaml", config.FormatAuto)
//	payloads, _ := store.Load(ctx, spec.ResponseSources())
//	d, _ := engine.New(spec, payloads)
//
//	port, ok := d.DefaultPort()
//	if !ok {
//	    port = 4280
//	}
//	srv := engine.NewServer(d, port, engine.WithAdminPort(4290))
//	_ = srv.Start()
//	defer srv.Stop()
//
// # Matching
//
// A request matches a route when its URL path, stripped of leading slashes,
// equals the route path. The method, query string and headers are ignored.
// Unmatched requests get a JSON 404 body.
package engine
