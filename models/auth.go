package models

// LoginRequest carries the dashboard password. The dashboard has a single
// operator credential; there is no per-user account model.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}
