package interfaces

import "page_marker/domain/entities"

// SnapshotStore keeps recorded page snapshots for offline replay
type SnapshotStore interface {
	// Save stores a snapshot under name
	Save(name string, snapshot *entities.PageSnapshot) error

	// Load loads a snapshot by name
	Load(name string) (*entities.PageSnapshot, error)

	// List returns the names of all stored snapshots
	List() ([]string, error)
}
