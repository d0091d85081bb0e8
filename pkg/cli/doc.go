// Package cli provides the command-line interface for mockan.
//
// Commands:
//   - serve: serve the routes of a specification file (default command)
//   - validate: load a specification and its responses, report problems
//   - routes: print the route table
//   - version: show mockan version
//
// Every flag can also be set with a MOCKAN_<FLAG> environment variable or in
// a .mockan.yaml settings file in the working directory (or --config).
//
// Usage:
//
//	mockan --spec services.yaml
//	mockan serve --spec openapi.yaml --port 8000 --admin-port 4290
//	mockan validate --spec services.yaml
//	mockan routes --spec openapi.yaml --json
package cli
