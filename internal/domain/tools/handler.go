package tools

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/juvomcp/juvomcp/internal/juvonno"
)

const serviceVersion = "1.0.0"

// Handler exposes the tool surface over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler around the tool service.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes binds the full inbound surface: discovery, the tool-call
// dispatcher, and the direct per-tool routes used by integrations that skip
// the MCP envelope.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Health)
	e.GET("/tools", h.ListTools)
	e.POST("/call-tool", h.CallTool)
	e.POST("/get-locations", h.GetLocations)
	e.POST("/get-providers", h.GetProviders)
	e.POST("/get-slots", h.GetSlots)
	e.POST("/get-appointment-types", h.GetAppointmentTypes)
	e.POST("/book-appointment", h.BookAppointment)
}

// Health handles GET / with a status payload listing the available routes.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "online",
		"service": "Juvonno MCP Server",
		"version": serviceVersion,
		"endpoints": []string{
			"/tools",
			"/call-tool",
			"/get-locations",
			"/get-providers",
			"/get-slots",
			"/book-appointment",
			"/get-appointment-types",
		},
	})
}

// ListTools handles GET /tools.
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tools": Catalog(),
	})
}

// CallTool handles POST /call-tool, the main MCP integration endpoint.
func (h *Handler) CallTool(c echo.Context) error {
	var req CallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	envelope, err := h.svc.CallTool(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, envelope)
}

// credentials are the per-request tenant credentials carried by every direct
// route body. Environment defaults never apply here.
type credentials struct {
	Subdomain string `json:"subdomain"`
	APIKey    string `json:"api_key"`
}

func (cr credentials) validate() error {
	if cr.Subdomain == "" || cr.APIKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required parameters: subdomain and api_key")
	}
	return nil
}

// LocationRequest is the body of POST /get-locations.
type LocationRequest struct {
	PostalCode string `json:"postal_code"`
	credentials
}

// GetLocations handles POST /get-locations.
func (h *Handler) GetLocations(c echo.Context) error {
	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}
	if req.PostalCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing postal_code parameter")
	}

	client := h.svc.Client(req.APIKey, req.Subdomain)
	locations := h.svc.LocationsNearPostalCode(c.Request().Context(), client, req.PostalCode)
	return c.JSON(http.StatusOK, juvonno.Record{
		"status":    "success",
		"locations": locations,
		"message":   fmt.Sprintf("Found %d location(s) near postal code %s", len(locations), req.PostalCode),
	})
}

// ProvidersRequest is the body of POST /get-providers.
type ProvidersRequest struct {
	LocationID  string `json:"location_id"`
	ServiceType string `json:"service_type"`
	credentials
}

// GetProviders handles POST /get-providers.
func (h *Handler) GetProviders(c echo.Context) error {
	var req ProvidersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}
	if req.LocationID == "" || req.ServiceType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing location_id or service_type parameter")
	}

	client := h.svc.Client(req.APIKey, req.Subdomain)
	providers := h.svc.ProvidersAtLocation(c.Request().Context(), client, req.LocationID, req.ServiceType)
	return c.JSON(http.StatusOK, juvonno.Record{
		"status":    "success",
		"providers": providers,
		"message":   fmt.Sprintf("Found %d provider(s) for %s", len(providers), req.ServiceType),
	})
}

// SlotsRequest is the body of POST /get-slots.
type SlotsRequest struct {
	ProviderID string `json:"provider_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	credentials
}

// GetSlots handles POST /get-slots.
func (h *Handler) GetSlots(c echo.Context) error {
	var req SlotsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}
	if req.ProviderID == "" || req.StartDate == "" || req.EndDate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required parameters: provider_id, start_date, end_date")
	}

	client := h.svc.Client(req.APIKey, req.Subdomain)
	slots := h.svc.AvailableSlots(c.Request().Context(), client, req.ProviderID, req.StartDate, req.EndDate)
	return c.JSON(http.StatusOK, juvonno.Record{
		"status":          "success",
		"available_slots": slots,
		"message":         fmt.Sprintf("Found %d available slot(s) for provider %s", len(slots), req.ProviderID),
	})
}

// AppointmentTypesRequest is the body of POST /get-appointment-types.
type AppointmentTypesRequest struct {
	credentials
}

// GetAppointmentTypes handles POST /get-appointment-types.
func (h *Handler) GetAppointmentTypes(c echo.Context) error {
	var req AppointmentTypesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}

	client := h.svc.Client(req.APIKey, req.Subdomain)
	types := h.svc.AppointmentTypes(c.Request().Context(), client)
	return c.JSON(http.StatusOK, juvonno.Record{
		"status":            "success",
		"appointment_types": types,
		"message":           fmt.Sprintf("Found %d appointment type(s)", len(types)),
	})
}

// AppointmentRequest is the body of POST /book-appointment.
type AppointmentRequest struct {
	ProviderID      string `json:"provider_id"`
	AppointmentTime string `json:"appointment_time"`
	AppointmentType string `json:"appointment_type"`
	PatientName     string `json:"patient_name"`
	PatientEmail    string `json:"patient_email"`
	PatientPhone    string `json:"patient_phone"`
	credentials
}

// BookAppointment handles POST /book-appointment. Booking failure yields a
// 200 response with a business-level error envelope so callers can
// distinguish "the clinic rejected this" from a protocol error.
func (h *Handler) BookAppointment(c echo.Context) error {
	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return err
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"provider_id", req.ProviderID},
		{"appointment_time", req.AppointmentTime},
		{"appointment_type", req.AppointmentType},
		{"patient_name", req.PatientName},
		{"patient_email", req.PatientEmail},
		{"patient_phone", req.PatientPhone},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
	}

	client := h.svc.Client(req.APIKey, req.Subdomain)
	envelope := h.svc.Book(c.Request().Context(), client, BookingInput{
		ProviderID:      req.ProviderID,
		AppointmentTime: req.AppointmentTime,
		AppointmentType: req.AppointmentType,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
	})
	return c.JSON(http.StatusOK, envelope)
}
