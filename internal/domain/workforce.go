package domain

import "time"

// WorkforceRole enumerates garage staff roles.
type WorkforceRole string

const (
	WorkforceRoleTechnician WorkforceRole = "Technician"
	WorkforceRoleAdvisor    WorkforceRole = "Advisor"
	WorkforceRoleManager    WorkforceRole = "Manager"
)

// Known reports whether r is a recognised role.
func (r WorkforceRole) Known() bool {
	switch r {
	case WorkforceRoleTechnician, WorkforceRoleAdvisor, WorkforceRoleManager:
		return true
	}
	return false
}

// WorkforceMember is an entry in the users collection.
type WorkforceMember struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Role        WorkforceRole `json:"role"`
	Active      bool          `json:"active"`
	LastCheckIn *time.Time    `json:"lastCheckIn,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	Revision
}

// PresentOn reports whether the member checked in on day's calendar date (in day's location).
func (m *WorkforceMember) PresentOn(day time.Time) bool {
	if m.LastCheckIn == nil {
		return false
	}
	y1, m1, d1 := m.LastCheckIn.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
