package tools

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/juvomcp/juvomcp/internal/juvonno"
)

var errTest = errors.New("schedule conflict")

func newTestHandler(fake *fakeEMR) (*Handler, *echo.Echo) {
	svc := NewService(func(apiKey, subdomain string) EMR { return fake }, zerolog.Nop())
	return NewHandler(svc), echo.New()
}

func postJSON(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHandler_Health(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Health(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "online" {
		t.Errorf("expected online status, got %v", body["status"])
	}
	if body["service"] != "Juvonno MCP Server" {
		t.Errorf("unexpected service name: %v", body["service"])
	}
	endpoints := body["endpoints"].([]interface{})
	if len(endpoints) != 7 {
		t.Errorf("expected 7 endpoints listed, got %d", len(endpoints))
	}
}

func TestHandler_ListTools(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListTools(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decodeBody(t, rec)
	tools := body["tools"].([]interface{})
	if len(tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools))
	}
	first := tools[0].(map[string]interface{})
	if first["name"] != ToolGetLocations {
		t.Errorf("expected %s first, got %v", ToolGetLocations, first["name"])
	}
}

func TestHandler_CallTool(t *testing.T) {
	fake := &fakeEMR{slots: []juvonno.Record{{"id": float64(1), "time": "09:00"}}}
	h, e := newTestHandler(fake)
	c, rec := postJSON(e, `{
		"name": "get_available_slots",
		"arguments": {
			"provider_id": "3",
			"start_date": "2025-05-22",
			"end_date": "2025-06-01",
			"subdomain": "acme",
			"api_key": "k"
		}
	}`)

	if err := h.CallTool(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" {
		t.Errorf("expected success, got %v", body["status"])
	}
	if body["message"] != "Found 1 available slot(s) for provider 3" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHandler_CallTool_UnknownTool(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	c, _ := postJSON(e, `{"name":"nope","arguments":{"subdomain":"acme","api_key":"k"}}`)

	err := h.CallTool(c)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpStatus(t, err))
	}
}

func TestHandler_GetLocations(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	c, rec := postJSON(e, `{"postal_code":"L1V 1B5","subdomain":"acme","api_key":"k"}`)

	if err := h.GetLocations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Found 1 location(s) near postal code L1V 1B5" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	locations := body["locations"].([]interface{})
	loc := locations[0].(map[string]interface{})
	if loc["name"] != "MedRehab Group Pickering" {
		t.Errorf("unexpected location: %v", loc)
	}
}

func TestHandler_GetLocations_MissingCredentials(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	c, _ := postJSON(e, `{"postal_code":"L1V 1B5"}`)

	err := h.GetLocations(c)
	if err == nil {
		t.Fatal("expected error")
	}
	he := err.(*echo.HTTPError)
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}
	if he.Message != "Missing required parameters: subdomain and api_key" {
		t.Errorf("unexpected message: %v", he.Message)
	}
}

func TestHandler_GetProviders(t *testing.T) {
	fake := &fakeEMR{providers: []juvonno.Record{
		{"id": "p1", "location_id": "7"},
		{"id": "p2", "location_id": "9"},
	}}
	h, e := newTestHandler(fake)
	c, rec := postJSON(e, `{"location_id":"7","service_type":"massage","subdomain":"acme","api_key":"k"}`)

	if err := h.GetProviders(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decodeBody(t, rec)
	// The direct route message names only the service type.
	if body["message"] != "Found 1 provider(s) for massage" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHandler_GetSlots_MissingParams(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	c, _ := postJSON(e, `{"provider_id":"3","subdomain":"acme","api_key":"k"}`)

	err := h.GetSlots(c)
	if err == nil {
		t.Fatal("expected error for missing dates")
	}
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpStatus(t, err))
	}
}

func TestHandler_GetAppointmentTypes(t *testing.T) {
	fake := &fakeEMR{types: []juvonno.Record{
		{"id": float64(1), "name": "New Patient"},
		{"id": float64(2), "name": "Follow Up"},
	}}
	h, e := newTestHandler(fake)
	c, rec := postJSON(e, `{"subdomain":"acme","api_key":"k"}`)

	if err := h.GetAppointmentTypes(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Found 2 appointment type(s)" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHandler_BookAppointment(t *testing.T) {
	fake := &fakeEMR{bookResult: juvonno.Record{"id": "appt-9"}}
	h, e := newTestHandler(fake)
	c, rec := postJSON(e, `{
		"provider_id": "3",
		"appointment_time": "2025-05-22T09:00:00",
		"appointment_type": "New Patient",
		"patient_name": "Jane Doe",
		"patient_email": "jane@example.com",
		"patient_phone": "555-0100",
		"subdomain": "acme",
		"api_key": "k"
	}`)

	if err := h.BookAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" || body["appointment_id"] != "appt-9" {
		t.Errorf("unexpected envelope: %v", body)
	}
}

func TestHandler_BookAppointment_MissingFields(t *testing.T) {
	h, e := newTestHandler(&fakeEMR{})
	c, _ := postJSON(e, `{
		"provider_id": "3",
		"appointment_type": "New Patient",
		"patient_name": "Jane Doe",
		"subdomain": "acme",
		"api_key": "k"
	}`)

	err := h.BookAppointment(c)
	if err == nil {
		t.Fatal("expected error")
	}
	he := err.(*echo.HTTPError)
	if he.Message != "Missing required fields: appointment_time, patient_email, patient_phone" {
		t.Errorf("unexpected message: %v", he.Message)
	}
}

func TestHandler_BookAppointment_BusinessError(t *testing.T) {
	fake := &fakeEMR{bookErr: errTest}
	h, e := newTestHandler(fake)
	c, rec := postJSON(e, `{
		"provider_id": "3",
		"appointment_time": "2025-05-22T09:00:00",
		"appointment_type": "New Patient",
		"patient_name": "Jane Doe",
		"patient_email": "jane@example.com",
		"patient_phone": "555-0100",
		"subdomain": "acme",
		"api_key": "k"
	}`)

	if err := h.BookAppointment(c); err != nil {
		t.Fatalf("booking failure must not surface as an HTTP error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "error" {
		t.Errorf("expected error envelope, got %v", body)
	}
	if !strings.Contains(body["message"].(string), "Failed to book appointment") {
		t.Errorf("unexpected message: %v", body["message"])
	}
}
