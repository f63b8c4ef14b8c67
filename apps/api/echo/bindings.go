package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kazi/core"
)

// Ordering binds the "?ordering=-field1,field2" query param; a leading "-"
// means descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	raw := ctx.QueryParam("ordering")
	if raw == "" {
		return
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		asc := true
		if strings.HasPrefix(field, "-") {
			field = field[1:]
			asc = false
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: asc})
	}
}
