package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// SignatureState reports whether document signing is switched on.
type SignatureState interface {
	Enabled() bool
}
