package handler

import "github.com/gofiber/fiber/v2"

// IndexHandler describes the service at GET /.
type IndexHandler struct {
	version string
}

// NewIndexHandler creates a new IndexHandler reporting version.
func NewIndexHandler(version string) *IndexHandler {
	return &IndexHandler{version: version}
}

// Index returns the service name, version and where to start browsing.
func (h *IndexHandler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "promotion-service",
		"version":     h.version,
		"description": "Create, update, duplicate, delete and list product promotions",
		"list_url":    c.BaseURL() + "/promotions",
	})
}
