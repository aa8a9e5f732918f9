package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// ParsePage reads page/pageSize query params with sane bounds.
func ParsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}
