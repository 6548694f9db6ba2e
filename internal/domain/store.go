package domain

// SetupRequest carries the parameters for first-time store onboarding.
type SetupRequest struct {
	Username string
	Password string
	Org      string
	Bucket   string
}

// Authorization is a store API token scoped to one organization.
type Authorization struct {
	ID          string
	Token       string
	Description string
	OrgID       string
}

// Organization is the store's tenancy unit.
type Organization struct {
	ID   string
	Name string
}
