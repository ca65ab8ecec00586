package models

// Policy is a Ditto policy document.
type Policy struct {
	Entries map[string]PolicyEntry `json:"entries"`
}

// PolicyEntry grants a set of subjects permissions on a set of resources.
type PolicyEntry struct {
	Subjects  map[string]Subject  `json:"subjects"`
	Resources map[string]Resource `json:"resources"`
}

// Subject identifies an authenticated principal.
type Subject struct {
	Type string `json:"type"`
}

// Resource lists the permissions granted and revoked on a resource path.
type Resource struct {
	Grant  []string `json:"grant"`
	Revoke []string `json:"revoke"`
}
