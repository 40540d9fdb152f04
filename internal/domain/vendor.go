package domain

import "time"

// VendorStatus represents lifecycle states for a parts/service vendor.
type VendorStatus string

const (
	VendorStatusActive      VendorStatus = "Active"
	VendorStatusInactive    VendorStatus = "Inactive"
	VendorStatusBlacklisted VendorStatus = "Blacklisted"
)

var VendorStatusMachine = NewStatusMachine(map[VendorStatus][]VendorStatus{
	VendorStatusActive:      {VendorStatusInactive, VendorStatusBlacklisted},
	VendorStatusInactive:    {VendorStatusActive, VendorStatusBlacklisted},
	VendorStatusBlacklisted: {},
})

// Vendor supplies parts or outsourced services to the garage.
type Vendor struct {
	ID            string                      `json:"id"`
	Name          string                      `json:"name"`
	ContactName   string                      `json:"contactName"`
	Phone         string                      `json:"phone"`
	Email         string                      `json:"email"`
	Category      string                      `json:"category"`
	Status        VendorStatus                `json:"status"`
	StatusHistory []StatusEntry[VendorStatus] `json:"statusHistory"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`

	Revision
}

// ChangeStatus applies a vendor status transition.
func (v *Vendor) ChangeStatus(next VendorStatus, at time.Time) (bool, error) {
	changed, err := transition(VendorStatusMachine, &v.Status, &v.StatusHistory, next, at)
	if changed {
		v.UpdatedAt = at
	}
	return changed, err
}
