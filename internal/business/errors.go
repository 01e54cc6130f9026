package business

import "errors"

var (
	// ErrNotFound is returned when no business matches the lookup.
	ErrNotFound = errors.New("business not found")

	// ErrOwnerExists is returned when creating a business for an owner
	// email that already has one.
	ErrOwnerExists = errors.New("a business with this owner email already exists")

	// ErrAgentTaken is returned when an agent id is already mapped to
	// another business. Exactly one business may own an agent id.
	ErrAgentTaken = errors.New("agent id is already assigned to another business")
)
