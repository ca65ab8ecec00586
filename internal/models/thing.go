package models

// Thing is the body of a twin creation request.
type Thing struct {
	PolicyID   string `json:"policyId"`
	Definition string `json:"definition"`
}
