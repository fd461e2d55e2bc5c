package models

// HTTP request/response models for the zones API.

type ZonesRequest struct {
	Pair string `query:"pair" json:"pair" validate:"required"`
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

type RangeRequest struct {
	Pair string `query:"pair" json:"pair" validate:"required"`
	From string `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
}

type ZonesResponse struct {
	Pair  string    `json:"pair"`
	Date  string    `json:"date"`
	Zones []float64 `json:"zones"`
}

type CalendarResponse struct {
	Pair string        `json:"pair"`
	From string        `json:"from"`
	To   string        `json:"to"`
	Days []DayDocument `json:"days"`
}

type LevelResponse struct {
	Price float64 `json:"price"`
	Start string  `json:"start"`
	End   string  `json:"end"`
}

type LevelsResponse struct {
	Pair   string          `json:"pair"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Levels []LevelResponse `json:"levels"`
}
