package core

// MaxPageLimit bounds response sizes for all list endpoints.
const MaxPageLimit = 50

// HardPageLimit is the server-enforced ceiling no client may exceed.
const HardPageLimit = 100

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Paging is a page/limit window over a query result.
type Paging struct {
	Page  int `json:"page" query:"page"`
	Limit int `json:"limit" query:"limit"`
}

// Clean normalizes Page to >= 1 and clamps Limit to [1, HardPageLimit],
// defaulting it to MaxPageLimit when unset.
func (p *Paging) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = MaxPageLimit
	}
	if p.Limit > HardPageLimit {
		p.Limit = HardPageLimit
	}
}

func (p Paging) Offset() int { return (p.Page - 1) * p.Limit }

// Paginated wraps a page of rows with its meta.
type Paginated struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
