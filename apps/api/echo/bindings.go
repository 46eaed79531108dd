package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

var orderingParam = "ordering"

// Ordering binds the "ordering" query param; a "-" prefix flips the
// direction ("-created_at").
type Ordering struct {
	Ordering core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	field := strings.TrimSpace(val)
	descending := strings.HasPrefix(field, "-")
	if descending {
		field = field[1:] // drop "-"
	}
	ord.Ordering = core.DBOrdering{Field: field, Ascending: !descending}
}

// bindPaging binds the page/limit query params; invalid values fall back
// to defaults via the filter's Clean.
func bindPaging(ctx echo.Context) core.Paging {
	var pg core.Paging
	if page, err := strconv.Atoi(ctx.QueryParam("page")); err == nil {
		pg.Page = page
	}
	if limit, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil {
		pg.Limit = limit
	}
	return pg
}

func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}
