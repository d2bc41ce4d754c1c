package middleware

import "github.com/aretw0/nonplanar/pkg/ports"

// Middleware allows wrapping a JobStore to add behavior.
type Middleware func(ports.JobStore) ports.JobStore

// Wrap applies middlewares to store. The first middleware is the outermost, so
// Wrap(s, Compression(), Encryption(cfg)) compresses before it encrypts.
func Wrap(store ports.JobStore, mws ...Middleware) ports.JobStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
