package tools

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/juvomcp/juvomcp/internal/juvonno"
)

// CallRequest is the body of POST /call-tool.
type CallRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// CallTool validates the named tool's arguments and dispatches it against a
// fresh credential-scoped client. Validation failures and unknown tools
// return 400-class errors before any network call; booking failures come
// back as a business-level {status:"error"} envelope, never an HTTP error.
func (s *Service) CallTool(ctx context.Context, req CallRequest) (juvonno.Record, error) {
	subdomain := argString(req.Arguments, "subdomain")
	apiKey := argString(req.Arguments, "api_key")
	if subdomain == "" || apiKey == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing required parameters: subdomain and api_key")
	}

	client := s.newClient(apiKey, subdomain)

	switch req.Name {
	case ToolGetLocations:
		postalCode := argString(req.Arguments, "postal_code")
		if postalCode == "" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing postal_code parameter")
		}
		locations := s.LocationsNearPostalCode(ctx, client, postalCode)
		return juvonno.Record{
			"status":    "success",
			"locations": locations,
			"message":   fmt.Sprintf("Found %d location(s) near postal code %s", len(locations), postalCode),
		}, nil

	case ToolGetProviders:
		locationID := argString(req.Arguments, "location_id")
		serviceType := argString(req.Arguments, "service_type")
		if locationID == "" || serviceType == "" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing location_id or service_type parameter")
		}
		providers := s.ProvidersAtLocation(ctx, client, locationID, serviceType)
		return juvonno.Record{
			"status":    "success",
			"providers": providers,
			"message":   fmt.Sprintf("Found %d provider(s) for %s at location %s", len(providers), serviceType, locationID),
		}, nil

	case ToolGetAvailableSlots:
		providerID := argString(req.Arguments, "provider_id")
		startDate := argString(req.Arguments, "start_date")
		endDate := argString(req.Arguments, "end_date")
		if providerID == "" || startDate == "" || endDate == "" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing required parameters: provider_id, start_date, end_date")
		}
		slots := s.AvailableSlots(ctx, client, providerID, startDate, endDate)
		return juvonno.Record{
			"status":          "success",
			"available_slots": slots,
			"message":         fmt.Sprintf("Found %d available slot(s) for provider %s", len(slots), providerID),
		}, nil

	case ToolBookAppointment:
		required := []string{
			"provider_id", "appointment_time", "appointment_type",
			"patient_name", "patient_email", "patient_phone",
		}
		var missing []string
		for _, field := range required {
			if argString(req.Arguments, field) == "" {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		}
		return s.Book(ctx, client, BookingInput{
			ProviderID:      argString(req.Arguments, "provider_id"),
			AppointmentTime: argString(req.Arguments, "appointment_time"),
			AppointmentType: argString(req.Arguments, "appointment_type"),
			PatientName:     argString(req.Arguments, "patient_name"),
			PatientEmail:    argString(req.Arguments, "patient_email"),
			PatientPhone:    argString(req.Arguments, "patient_phone"),
		}), nil

	default:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unknown tool: "+req.Name)
	}
}

// argString reads a tool argument as a string, rendering scalar JSON values
// the way the upstream API echoes identifiers. Absent or empty counts as
// missing for validation purposes.
func argString(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
