package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "lab_technician", "registrar"))
	read.GET("/catalog/tests", h.ListDefinitions)
	read.GET("/catalog/tests/:code", h.GetDefinition)

	write := api.Group("", auth.RequireRole("admin"))
	write.POST("/catalog/tests", h.CreateDefinition)
	write.PUT("/catalog/tests/:id", h.UpdateDefinition)
}

func (h *Handler) ListDefinitions(c echo.Context) error {
	defs, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	if defs == nil {
		defs = []*TestDefinition{}
	}
	return c.JSON(http.StatusOK, defs)
}

func (h *Handler) GetDefinition(c echo.Context) error {
	def, err := h.svc.GetByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, def)
}

func (h *Handler) CreateDefinition(c echo.Context) error {
	var def TestDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDefinition(c.Request().Context(), &def); err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusCreated, def)
}

func (h *Handler) UpdateDefinition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var def TestDefinition
	if err := c.Bind(&def); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	def.ID = id
	if err := h.svc.UpdateDefinition(c.Request().Context(), &def); err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, def)
}
