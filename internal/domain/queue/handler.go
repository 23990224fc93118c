package queue

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicq/clinicq/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments/:id/check-in", h.CheckIn)
	api.GET("/queue/position/:appointmentId", h.Position)
	api.DELETE("/queue/:appointmentId", h.Cancel)

	doctor := api.Group("", auth.RequireRole("doctor"))
	doctor.POST("/doctor/call-next", h.CallNext)
	doctor.PUT("/doctor/complete-consultation/:appointmentId", h.Complete)

	staff := api.Group("", auth.RequireRole("admin", "doctor", "receptionist"))
	staff.GET("/queue/doctor/:doctorId", h.Snapshot)
	staff.POST("/queue/:appointmentId/no-show", h.NoShow)
}

func (h *Handler) CheckIn(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.CheckIn(c.Request().Context(), id)
	if err != nil {
		return queueError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type callNextRequest struct {
	Date string `json:"date,omitempty"`
}

func (h *Handler) CallNext(c echo.Context) error {
	doctorID, err := callerDoctorID(c)
	if err != nil {
		return err
	}

	var req callNextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		return err
	}

	called, err := h.svc.CallNext(c.Request().Context(), doctorID, date)
	if err != nil {
		return queueError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"appointment_id": called.AppointmentID,
		"patient_id":     called.PatientID,
		"token_number":   called.TokenNumber,
	})
}

type completeRequest struct {
	Notes string `json:"notes,omitempty"`
	Date  string `json:"date,omitempty"`
}

func (h *Handler) Complete(c echo.Context) error {
	doctorID, err := callerDoctorID(c)
	if err != nil {
		return err
	}
	appointmentID, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := parseDateOrToday(req.Date)
	if err != nil {
		return err
	}

	if err := h.svc.Complete(c.Request().Context(), doctorID, date, appointmentID, req.Notes); err != nil {
		return queueError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Position is the polling backstop for clients without a live connection.
// A missing entry is a normal outcome here, not an error response.
func (h *Handler) Position(c echo.Context) error {
	id, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	result, err := h.svc.Position(c.Request().Context(), id)
	if errors.Is(err, ErrNotQueued) {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "appointment is not in the queue",
		})
	}
	if err != nil {
		return queueError(err)
	}
	// Key casing here is part of the polling contract; clients read these
	// fields verbatim.
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"status":        result.Status,
		"position":      result.Position,
		"patientsAhead": result.PatientsAhead,
		"waitTime":      result.WaitMinutes,
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return queueError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) NoShow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	if err := h.svc.MarkNoShow(c.Request().Context(), id); err != nil {
		return queueError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Snapshot(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := parseDateOrToday(c.QueryParam("date"))
	if err != nil {
		return err
	}

	entries := h.svc.Snapshot(doctorID, date)
	return c.JSON(http.StatusOK, map[string]interface{}{"data": entries, "total": len(entries)})
}

func callerDoctorID(c echo.Context) (uuid.UUID, error) {
	raw := auth.DoctorIDFromContext(c.Request().Context())
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "caller has no doctor identity")
	}
	doctorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "caller has no doctor identity")
	}
	return doctorID, nil
}

func parseDateOrToday(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return date, nil
}

// queueError maps the queue error taxonomy onto HTTP statuses. Conflicts
// and missing entries are client-resolvable; persistence and lock failures
// tell the client to retry shortly.
func queueError(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyQueued),
		errors.Is(err, ErrInvalidAppointmentState),
		errors.Is(err, ErrConsultationInProgress),
		errors.Is(err, ErrNotCurrentPatient):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrQueueEmpty),
		errors.Is(err, ErrNotQueued):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPersistenceFailed),
		errors.Is(err, ErrBusy):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
