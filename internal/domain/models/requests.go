package models

// RecentAttacksRequest binds GET /api/attacks/recent.
type RecentAttacksRequest struct {
	Limit int `query:"limit" default:"10" validate:"min=1,max=500"`
}

// CountryAttacksRequest binds GET /api/attacks/countries.
type CountryAttacksRequest struct {
	Range string `query:"range" default:"1h" validate:"required,timerange"`
}
