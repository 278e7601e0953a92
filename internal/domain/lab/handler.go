package lab

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
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "lab_technician"))
	read.GET("/lab/batches/:id", h.GetBatch)
	read.GET("/lab/queue", h.GetGroupedQueue)

	order := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	order.POST("/lab/batches", h.CreateBatch)

	labWork := api.Group("", auth.RequireRole("admin", "lab_technician"))
	labWork.POST("/lab/batches/:id/collect", h.CollectSample)
	labWork.POST("/lab/batches/:id/results", h.SubmitResults)
}

func (h *Handler) CreateBatch(c echo.Context) error {
	var req CreateBatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RequestedBy == uuid.Nil {
		if staffID, err := uuid.Parse(auth.StaffIDFromContext(c.Request().Context())); err == nil {
			req.RequestedBy = staffID
		}
	}
	batch, err := h.svc.CreateBatch(c.Request().Context(), req)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusCreated, batch)
}

func (h *Handler) GetBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid batch id")
	}
	batch, err := h.svc.GetBatch(c.Request().Context(), id)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, batch)
}

func (h *Handler) CollectSample(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid batch id")
	}
	var req CollectSampleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.BatchID = id
	if req.CollectedBy == uuid.Nil {
		if staffID, err := uuid.Parse(auth.StaffIDFromContext(c.Request().Context())); err == nil {
			req.CollectedBy = staffID
		}
	}
	sampleID, err := h.svc.CollectSample(c.Request().Context(), req)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, map[string]string{"shared_sample_id": sampleID})
}

func (h *Handler) SubmitResults(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid batch id")
	}
	var req SubmitResultsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.BatchID = id
	if req.TechnicianID == uuid.Nil {
		if staffID, err := uuid.Parse(auth.StaffIDFromContext(c.Request().Context())); err == nil {
			req.TechnicianID = staffID
		}
	}
	count, err := h.svc.SubmitResults(c.Request().Context(), req)
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	return c.JSON(http.StatusOK, map[string]int{"completed_count": count})
}

func (h *Handler) GetGroupedQueue(c echo.Context) error {
	groups, err := h.svc.GetGroupedLabQueue(c.Request().Context())
	if err != nil {
		return c.JSON(errs.Status(err), errs.Payload(err))
	}
	if groups == nil {
		groups = []PatientGroup{}
	}
	return c.JSON(http.StatusOK, groups)
}
