package tasks

import (
	"fmt"

	"taskboard/models"
)

// Policy decides whether who may mutate t. It returns models.ErrForbidden to refuse.
type Policy func(t models.Task, who models.Identity) error

// OwnerOnly lets only the owner mutate an owned task. Tasks without an owner
// stay open to everyone.
func OwnerOnly(t models.Task, who models.Identity) error {
	if t.OwnerID == nil || t.OwnedBy(who.UserID) {
		return nil
	}
	return models.ErrForbidden
}

// Open lets anyone mutate any task.
func Open(models.Task, models.Identity) error {
	return nil
}

// PolicyByName maps the AUTHZ_POLICY setting to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "owner", "":
		return OwnerOnly, nil
	case "open":
		return Open, nil
	}
	return nil, fmt.Errorf("unknown authorization policy %q", name)
}
