package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PaginatedResponse wraps a page of results with its position in the full list.
type PaginatedResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// parsePagination reads offset and limit from the query string. Out of range
// values fall back to the defaults rather than failing the request.
func parsePagination(c *fiber.Ctx) Pagination {
	p := Pagination{
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", defaultPageLimit),
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

// paginated sets the Link header and writes the page. A nil page is sent as [].
func paginated[T any](c *fiber.Ctx, items []T, p Pagination) error {
	if items == nil {
		items = []T{}
	}
	SetLinkHeaders(c, p)
	return c.JSON(PaginatedResponse[T]{Data: items, Pagination: p})
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses. Query
// parameters other than offset and limit are carried into every link.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	extra := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key != "offset" && key != "limit" {
			extra.Add(key, string(v))
		}
	})

	link := func(offset int, rel string) string {
		q := url.Values{}
		for k, vs := range extra {
			q[k] = vs
		}
		q.Set("offset", fmt.Sprint(offset))
		q.Set("limit", fmt.Sprint(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, base, q.Encode(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
}
