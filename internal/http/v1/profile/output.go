package profile

// ProfileCreateOutput for POST /profiles (201 Created)
type ProfileCreateOutput struct {
	Location string `header:"Location" doc:"URL of the created profile"`
	ETag     string `header:"ETag"`
	Body     Profile
}

// ProfileListOutput for GET /profiles
type ProfileListOutput struct {
	Link string `header:"Link" doc:"RFC 8288 pagination links"`
	Body ListData
}

// ProfileGetOutput for GET /profiles/{id}
type ProfileGetOutput struct {
	ETag string `header:"ETag"`
	Body Profile
}

// ProfileUpdateOutput for PATCH /profiles/{id}
type ProfileUpdateOutput struct {
	ETag string `header:"ETag"`
	Body Profile
}

// ProfileNormalizeOutput for POST /profiles/normalize
type ProfileNormalizeOutput struct {
	Body map[string]any
}

// ProfileSchemaOutput for GET /profiles/schema
type ProfileSchemaOutput struct {
	Body map[string]any
}
