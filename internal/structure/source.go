// Package structure provides access to the network structure subsystem,
// the external service that owns structure entries and their link topology.
package structure

import (
	"context"

	"github.com/rankforge/linkmesh/internal/model"
)

// Source lists networks and their structure entries. It is implemented by
// HTTPSource (default) and can be backed by any transport.
type Source interface {
	// ListNetworkIDs returns the IDs of all networks under management.
	ListNetworkIDs(ctx context.Context) ([]string, error)

	// ListEntries returns every structure entry in the given network.
	// Entries are canonicalized at ingestion: legacy string tiers are
	// translated to the integer tier field before being returned.
	ListEntries(ctx context.Context, networkID string) ([]*model.StructureEntry, error)

	Close() error
}
