package handlers

import (
	"github.com/labstack/echo/v4"
)

// Every endpoint answers with the same envelope: status 1 on success and 0
// on failure, so clients can branch without inspecting HTTP codes.

func ok(c echo.Context, code int, message string, data interface{}) error {
	body := map[string]interface{}{
		"status":  1,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(code, body)
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]interface{}{
		"status":  0,
		"message": message,
	})
}

func failWith(c echo.Context, code int, message string, errs interface{}) error {
	return c.JSON(code, map[string]interface{}{
		"status":  0,
		"message": message,
		"errors":  errs,
	})
}

// Paginated wraps list responses with paging metadata.
type Paginated struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int64       `json:"totalPages"`
}

func paginate(items interface{}, total int64, page, pageSize int) Paginated {
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return Paginated{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pages,
	}
}
