package pagination

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params embeds into Huma input structs for pagination.
type Params struct {
	Cursor string `query:"cursor" doc:"Opaque pagination cursor from a previous response"`
	Limit  int    `query:"limit"  doc:"Maximum items per page"                            default:"20" minimum:"1" maximum:"100"`
}

// DefaultLimit returns the limit clamped to 1..100, or 20 when unset.
func (p Params) DefaultLimit() int {
	if p.Limit <= 0 {
		return defaultLimit
	}
	return min(p.Limit, maxLimit)
}
