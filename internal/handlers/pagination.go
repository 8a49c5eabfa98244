// Package handlers binds the HTTP surface to the services through the
// request pipeline.
package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Page reads pagination query params with defaults.
func Page(c *fiber.Ctx, defaultSize int) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultSize)))
	if pageSize < 1 {
		pageSize = defaultSize
	}
	return page, pageSize
}

// Paginated wraps a result page in the standard envelope with next/prev
// links.
func Paginated(c *fiber.Ctx, items any, total int64, page, pageSize int) fiber.Map {
	lastPage := int((total + int64(pageSize) - 1) / int64(pageSize))
	if lastPage < 1 {
		lastPage = 1
	}

	link := func(p int) any {
		if p < 1 || p > lastPage {
			return nil
		}
		return fmt.Sprintf("%s?page=%d&page_size=%d", c.Path(), p, pageSize)
	}

	return fiber.Map{
		"results":   items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"last_page": lastPage,
		"next":      link(page + 1),
		"prev":      link(page - 1),
	}
}
