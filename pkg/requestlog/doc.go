// Package requestlog keeps a bounded, in-memory history of the requests a
// mock server answered.
//
// The history backs the admin /requests endpoints. Entries are evicted
// oldest first once the configured capacity is reached.
package requestlog
