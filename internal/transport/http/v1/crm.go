package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// QueryCRM forwards a question to the CRM webhook.
// POST /api/crm
func (h *Handler) QueryCRM(c echo.Context) error {
	var req domain.CRMQueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body"})
	}

	resp, err := h.service.QueryCRM(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "Failed to process CRM request", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CRMHealth probes a CRM endpoint. GET reads url, username and password from
// the query string; POST from the JSON body.
// GET|POST /api/health/crm
func (h *Handler) CRMHealth(c echo.Context) error {
	var req domain.CRMHealthRequest
	if c.Request().Method == http.MethodPost {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"status":  string(domain.CheckError),
				"message": "Invalid request body",
			})
		}
	} else {
		req.URL = c.QueryParam("url")
		req.Username = c.QueryParam("username")
		req.Password = c.QueryParam("password")
	}

	report, err := h.service.CheckCRMHealth(c.Request().Context(), req)
	if err != nil {
		status, _ := statusFor(err)
		return c.JSON(status, map[string]string{
			"status":  string(domain.CheckError),
			"message": err.Error(),
			"usage":   "/api/health/crm?url=YOUR_CRM_URL&username=YOUR_USERNAME&password=YOUR_PASSWORD",
		})
	}
	return c.JSON(http.StatusOK, report)
}
