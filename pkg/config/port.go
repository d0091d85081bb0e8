package config

// DefaultPort derives the default bind port from a spec's server
// definitions.
//
// Zero servers yield ErrNoServer, more than one a *MultipleServersError and
// a single server without a port ErrNoPort. In every error case the returned
// port is 0, which callers must treat as "no default port" rather than as a
// port to bind.
func DefaultPort(servers []Server) (uint16, error) {
	switch len(servers) {
	case 0:
		return 0, ErrNoServer
	case 1:
	default:
		return 0, &MultipleServersError{Count: len(servers)}
	}
	if servers[0].Port == 0 {
		return 0, ErrNoPort
	}
	return servers[0].Port, nil
}
