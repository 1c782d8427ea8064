package handlers

import (
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is returned when the status document cannot be served.
type ErrorResponse struct {
	Error string `json:"error" example:"failed to load state"`
}

// PickerHandler serves the static target picker and the status document it
// reads.
type PickerHandler struct {
	state StateLoader
	page  fs.FS
}

// NewPickerHandler creates a PickerHandler. page must contain index.html.
func NewPickerHandler(s StateLoader, page fs.FS) *PickerHandler {
	return &PickerHandler{state: s, page: page}
}

// Index serves the picker page.
//
// @Summary Target picker
// @Description Static page for choosing TARGET_PRODUCTS.
// @Tags picker
// @Produce html
// @Success 200
// @Router / [get]
func (h *PickerHandler) Index(c echo.Context) error {
	return echo.StaticFileHandler("index.html", h.page)(c)
}

// StatusJSON serves the persisted status map in the same flat format the
// file backend writes.
//
// @Summary Raw status map
// @Description Flat JSON object of product identifier to status.
// @Tags picker
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} ErrorResponse
// @Router /status.json [get]
func (h *PickerHandler) StatusJSON(c echo.Context) error {
	statuses, err := h.state.Load(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load state"})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSONPretty(http.StatusOK, statuses, "  ")
}
