package queue

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/errs"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	svc    *Service
	merger *Merger
}

func NewHandler(svc *Service, merger *Merger) *Handler {
	return &Handler{svc: svc, merger: merger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "lab_technician", "registrar"))
	read.GET("/queue/entries/:id", h.GetEntry)
	read.GET("/queue/departments/:id", h.GetDepartmentQueue)
	read.GET("/queue/departments/:id/merged", h.GetMergedQueue)
	read.GET("/queue/departments/:id/stats", h.GetStats)
	read.GET("/queue/patients/:id/history", h.GetPatientHistory)

	write := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	write.POST("/queue/admit", h.Admit)
	write.PATCH("/queue/entries/:id/status", h.Transition)
	write.POST("/queue/entries/:id/transfer", h.Transfer)
	write.POST("/queue/entries/:id/assign", h.AssignStaff)
}

func (h *Handler) Admit(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.Admit(c.Request().Context(), req)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entry, err := h.svc.GetEntry(c.Request().Context(), id)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, entry)
}

type transitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) Transition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.Transition(c.Request().Context(), id, Status(req.Status), req.Notes)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, entry)
}

type transferRequest struct {
	DepartmentID uuid.UUID `json:"department_id"`
	Reason       string    `json:"reason"`
}

func (h *Handler) Transfer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DepartmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "department_id is required")
	}
	res, err := h.svc.Transfer(c.Request().Context(), id, req.DepartmentID, req.Reason)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, res)
}

type assignRequest struct {
	StaffID uuid.UUID `json:"staff_id"`
}

func (h *Handler) AssignStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.StaffID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "staff_id is required")
	}
	entry, err := h.svc.AssignStaff(c.Request().Context(), id, req.StaffID)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetDepartmentQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entries, err := h.svc.GetDepartmentQueue(c.Request().Context(), id)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetMergedQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	merged, err := h.merger.GetMergedQueue(c.Request().Context(), id)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, merged)
}

func (h *Handler) GetStats(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	stats, err := h.svc.GetStats(c.Request().Context(), id)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetPatientHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.GetPatientQueueHistory(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}
