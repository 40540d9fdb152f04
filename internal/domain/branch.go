package domain

// Branch is a garage location read from the branch roster spreadsheet.
type Branch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
	Manager string `json:"manager"`
}
