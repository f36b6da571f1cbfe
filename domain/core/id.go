package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// idNamespace roots every derived identifier so ids stay stable across processes.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gridtruth/analytics-core"))

// DeriveID builds a name-based (v5) UUID from the given parts. Identical parts
// always produce the identical id; there is no clock or randomness involved.
func DeriveID(kind string, parts ...string) ID {
	name := kind + "\x1f" + strings.Join(parts, "\x1f")
	return ID(uuid.NewSHA1(idNamespace, []byte(name)).String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Opaque identifiers handed in by upstream collaborators. The core never
// interprets them beyond equality and ordering.
type (
	RunID      ID
	RevisionID ID
	SnapshotID ID
	PackID     ID
)

func (id RunID) String() string      { return ID(id).String() }
func (id RevisionID) String() string { return ID(id).String() }
func (id SnapshotID) String() string { return ID(id).String() }
func (id PackID) String() string     { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: run ID cannot be empty", ErrInvalidInput)
	}
	return RunID(s), nil
}

// ParseRevisionID parses a string into RevisionID
func ParseRevisionID(s string) (RevisionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: revision ID cannot be empty", ErrInvalidInput)
	}
	return RevisionID(s), nil
}

// NewSnapshotID derives the id of a truth snapshot from its identity and content fingerprint.
func NewSnapshotID(run RunID, rev RevisionID, fingerprint Hash) SnapshotID {
	return SnapshotID(DeriveID("truth-snapshot", string(run), string(rev), fingerprint.String()))
}
