package export

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/exports")
	g.GET("/patients", h.Patients)
	g.GET("/assessments", h.Assessments)
	g.GET("/environments", h.Environments)
	g.GET("/needs", h.Needs)
	g.GET("/comprehensive", h.Comprehensive)
}

func dateRange(c echo.Context) (DateRange, error) {
	var r DateRange
	if v := c.QueryParam("startDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, "invalid startDate")
		}
		r.From = &t
	}
	if v := c.QueryParam("endDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, "invalid endDate")
		}
		// Inclusive of the whole end day.
		t = t.Add(24*time.Hour - time.Second)
		r.To = &t
	}
	return r, nil
}

func writeWorkbook(c echo.Context, wb *excelize.File, subject string) error {
	defer wb.Close()
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentTypeXLSX)
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s", Filename(subject, time.Now())))
	res.WriteHeader(http.StatusOK)
	return wb.Write(res)
}

func (h *Handler) Patients(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	wb, err := h.svc.Patients(c.Request().Context(), PatientFilter{
		DateRange: r,
		AgeGroup:  c.QueryParam("ageGroup"),
	})
	if err != nil {
		return err
	}
	return writeWorkbook(c, wb, "Patients")
}

func (h *Handler) Assessments(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	wb, err := h.svc.Assessments(c.Request().Context(), AssessmentFilter{
		DateRange: r,
		FollowUp:  c.QueryParam("followUp"),
	})
	if err != nil {
		return err
	}
	return writeWorkbook(c, wb, "Medical_Assessments")
}

func (h *Handler) Environments(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	wb, err := h.svc.Environments(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return writeWorkbook(c, wb, "Environment_Assessments")
}

func (h *Handler) Needs(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	wb, err := h.svc.Needs(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return writeWorkbook(c, wb, "Needs_Identification")
}

func (h *Handler) Comprehensive(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return err
	}
	wb, err := h.svc.Comprehensive(c.Request().Context(), r, time.Now())
	if err != nil {
		return err
	}
	return writeWorkbook(c, wb, "Full_Report")
}
