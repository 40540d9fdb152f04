package dto

// SetActiveRequest toggles a workforce member.
type SetActiveRequest struct {
	Active *bool `json:"active"`
}
