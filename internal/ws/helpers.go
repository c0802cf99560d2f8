package ws

import "github.com/google/uuid"

// newConnID tags a connection for event correlation. The bridge reuses it to
// identify service instances.
func newConnID() string {
	return uuid.NewString()
}
