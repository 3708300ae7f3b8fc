package services

import "tabletennis/internal/models"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return models.IsAdminRole(a.Role)
}

// Owns reports whether the actor may act on userID's resources.
func (a Actor) Owns(userID string) bool {
	return a.ID != "" && (a.ID == userID || a.IsAdmin())
}
