// Package store loads mock response bodies before the server starts.
//
// Every response source named by a spec is read once, validated as JSON and
// kept in memory for the lifetime of the process. A Store is immutable after
// Load returns, so it can be shared by any number of concurrent requests
// without locking.
//
// Usage:
//
//	st, err := store.Load(ctx, spec.ResponseSources(), store.WithLogger(log))
//	if err != nil {
//		return err // *store.ResponseLoadError names the failing source
//	}
//	payload, ok := st.Payload(source.ID())
//
// Files ending in .yaml or .yml are decoded as YAML and stored as the
// equivalent JSON. Everything else, inline bodies included, must already be
// well-formed JSON.
package store
