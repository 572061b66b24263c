// Package juvonno provides a credential-scoped client for the Juvonno EMR
// REST API. Every operation is a single authenticated round trip against a
// tenant instance at https://{subdomain}.juvonno.com/api; booking performs
// two (patient resolution, then appointment creation).
//
// Failure policy: read operations absorb transport and upstream errors and
// return sentinel values (false, empty slice, absent) so callers never need
// error handling. BookAppointment is the one operation that returns an
// error, because the caller must know the booking did not happen.
package juvonno

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// upstreamDomain is the Juvonno tenant domain suffix.
const upstreamDomain = "juvonno.com"

// maxErrorBody bounds how much of an upstream error body is logged.
const maxErrorBody = 1024

// Errors returned by BookAppointment.
var (
	ErrPatientResolution  = errors.New("failed to create or retrieve patient")
	ErrMissingCredentials = errors.New("api key and subdomain are required")
)

// Record is an opaque upstream JSON object passed through largely unmodified.
type Record = map[string]interface{}

// Options configures a Client. Zero-value fields fall back to sensible
// defaults; missing credentials leave the client in a degraded mode where
// every call fails explicitly instead of the constructor panicking.
type Options struct {
	APIKey     string
	Subdomain  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to one tenant's Juvonno instance. It holds no mutable state
// and is safe for concurrent use; the intended pattern is one Client per
// inbound request.
type Client struct {
	apiKey    string
	subdomain string
	baseURL   string
	http      *http.Client
	logger    zerolog.Logger
}

// New builds a Client for the given credentials. The subdomain is normalized
// first: a scheme prefix, trailing slashes, and a redundant .juvonno.com
// suffix are all stripped, so "https://acme.juvonno.com/" and "acme" yield
// the same base URL.
func New(opts Options) *Client {
	c := &Client{
		apiKey:    opts.APIKey,
		subdomain: NormalizeSubdomain(opts.Subdomain),
		http:      opts.HTTPClient,
		logger:    opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.apiKey == "" {
		c.logger.Warn().Msg("no Juvonno API key provided")
	}
	if c.subdomain == "" {
		c.logger.Warn().Msg("no Juvonno subdomain provided")
	} else {
		c.baseURL = fmt.Sprintf("https://%s.%s/api", c.subdomain, upstreamDomain)
	}
	return c
}

// NormalizeSubdomain reduces the accepted subdomain spellings to the bare
// tenant name.
func NormalizeSubdomain(s string) string {
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimRight(s, "/")
	s = strings.ReplaceAll(s, "."+upstreamDomain, "")
	return s
}

// BaseURL returns the derived API root, empty when no subdomain was given.
func (c *Client) BaseURL() string { return c.baseURL }

// Subdomain returns the normalized tenant subdomain.
func (c *Client) Subdomain() string { return c.subdomain }

// endpoint joins the base URL with a path, tolerating a leading slash.
func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// newRequest builds an authenticated request with optional query parameters.
func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body interface{}) (*http.Request, error) {
	u := c.endpoint(path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// logUpstreamError logs a non-success upstream response with a bounded body excerpt.
func (c *Client) logUpstreamError(op string, resp *http.Response) {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.logger.Error().
		Str("operation", op).
		Int("status", resp.StatusCode).
		Str("body", string(excerpt)).
		Msg("upstream request failed")
}

// decodeList decodes an upstream JSON array body into records.
func decodeList(r io.Reader) ([]Record, error) {
	var out []Record
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateCredentials checks the API key against a lightweight listing
// endpoint. It returns true only on HTTP 200 and never returns an error:
// 401, other statuses, and transport failures all report false.
func (c *Client) ValidateCredentials(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "branches", nil, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("error validating credentials")
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error validating credentials")
		return false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		c.logger.Debug().Str("subdomain", c.subdomain).Msg("authentication successful")
		return true
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Warn().Msg("authentication failed: invalid API key")
		return false
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Msg("unexpected response validating credentials")
		return false
	}
}

// GetProviders lists providers for the tenant. Credentials are validated
// first; an invalid key short-circuits to an empty list.
func (c *Client) GetProviders(ctx context.Context) []Record {
	if !c.ValidateCredentials(ctx) {
		c.logger.Error().Msg("cannot get providers: invalid credentials")
		return []Record{}
	}

	req, err := c.newRequest(ctx, http.MethodGet, "branches/options", nil, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting providers")
		return []Record{}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting providers")
		return []Record{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logUpstreamError("get_providers", resp)
		return []Record{}
	}

	providers, err := decodeList(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("error decoding providers")
		return []Record{}
	}
	return providers
}

// SlotQuery filters an availability search. Dates are ISO calendar dates
// (YYYY-MM-DD); empty dates default to the window [today, today+7d].
type SlotQuery struct {
	StartDate  string
	EndDate    string
	ProviderID string
}

// GetAvailableSlots lists open appointment slots. When ProviderID is set the
// provider-scoped availability path is used and the provider is dropped from
// the query string.
func (c *Client) GetAvailableSlots(ctx context.Context, q SlotQuery) []Record {
	if q.StartDate == "" {
		q.StartDate = time.Now().Format("2006-01-02")
	}
	if q.EndDate == "" {
		q.EndDate = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	}

	params := url.Values{}
	params.Set("start_date", q.StartDate)
	params.Set("end_date", q.EndDate)

	path := "appointments/availability"
	if q.ProviderID != "" {
		path = "appointments/availability/" + url.PathEscape(q.ProviderID)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting available slots")
		return []Record{}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting available slots")
		return []Record{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logUpstreamError("get_available_slots", resp)
		return []Record{}
	}

	slots, err := decodeList(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("error decoding slots")
		return []Record{}
	}
	return slots
}

// GetAppointmentTypes lists the tenant's appointment types.
func (c *Client) GetAppointmentTypes(ctx context.Context) []Record {
	req, err := c.newRequest(ctx, http.MethodGet, "appointments/types", nil, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting appointment types")
		return []Record{}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting appointment types")
		return []Record{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logUpstreamError("get_appointment_types", resp)
		return []Record{}
	}

	types, err := decodeList(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("error decoding appointment types")
		return []Record{}
	}
	return types
}

// GetAppointment fetches a single appointment by ID. The second return is
// false when the appointment is missing or any failure occurred.
func (c *Client) GetAppointment(ctx context.Context, appointmentID string) (Record, bool) {
	req, err := c.newRequest(ctx, http.MethodGet, "appointments/"+url.PathEscape(appointmentID), nil, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting appointment")
		return nil, false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error getting appointment")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logUpstreamError("get_appointment", resp)
		return nil, false
	}

	var appt Record
	if err := json.NewDecoder(resp.Body).Decode(&appt); err != nil {
		c.logger.Error().Err(err).Msg("error decoding appointment")
		return nil, false
	}
	return appt, true
}

// PatientDetails identifies a patient for lookup-or-create. Email drives the
// search; the remaining fields feed the creation payload when no match is
// found. Empty optional fields are omitted from the payload.
type PatientDetails struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth string
	Gender      string
	Address     string
	City        string
	State       string
	PostalCode  string
}

// BookingData carries everything needed to book one appointment.
// StartTime is an ISO 8601 date-time; AppointmentType is the upstream type
// identifier echoed back as-is.
type BookingData struct {
	Patient         PatientDetails
	ProviderID      string
	StartTime       string
	AppointmentType string
	Notes           string
}

// BookAppointment resolves (or creates) the patient and posts the
// appointment. Unlike the read operations it propagates failure: the caller
// must be able to distinguish "booked" from "not booked".
func (c *Client) BookAppointment(ctx context.Context, data BookingData) (Record, error) {
	patientID := c.resolvePatient(ctx, data.Patient)
	if patientID == "" {
		return nil, ErrPatientResolution
	}

	payload := Record{
		"patient_id":          patientID,
		"provider_id":         data.ProviderID,
		"start_time":          data.StartTime,
		"appointment_type_id": data.AppointmentType,
		"notes":               data.Notes,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "appointments", nil, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("error booking appointment")
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error booking appointment")
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(excerpt)).
			Msg("failed to book appointment")
		return nil, fmt.Errorf("failed to book appointment: %s", string(excerpt))
	}

	var appt Record
	if err := json.NewDecoder(resp.Body).Decode(&appt); err != nil {
		return nil, fmt.Errorf("failed to decode booking response: %w", err)
	}
	return appt, nil
}

// resolvePatient finds an existing patient by email or creates a new record,
// returning the upstream patient ID. An empty string means resolution
// failed; BookAppointment converts that into a hard error.
func (c *Client) resolvePatient(ctx context.Context, p PatientDetails) string {
	if p.Email != "" {
		if id := c.searchPatientByEmail(ctx, p.Email); id != "" {
			return id
		}
	}
	return c.createPatient(ctx, p)
}

// searchPatientByEmail returns the first matching patient's ID, or "" when
// no match was found or the search failed.
func (c *Client) searchPatientByEmail(ctx context.Context, email string) string {
	params := url.Values{}
	params.Set("email", email)

	req, err := c.newRequest(ctx, http.MethodGet, "patients/search", params, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("error searching patient")
		return ""
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error searching patient")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	patients, err := decodeList(resp.Body)
	if err != nil || len(patients) == 0 {
		return ""
	}

	id := stringifyID(patients[0]["id"])
	if id != "" {
		c.logger.Debug().Str("patient_id", id).Msg("matched existing patient")
	}
	return id
}

// createPatient posts a new patient record and returns its ID, "" on failure.
func (c *Client) createPatient(ctx context.Context, p PatientDetails) string {
	payload := Record{
		"first_name":     p.FirstName,
		"last_name":      p.LastName,
		"gender":         p.Gender,
		"address":        p.Address,
		"city":           p.City,
		"state":          p.State,
		"postal_code":    p.PostalCode,
		"is_new_patient": true,
	}
	if p.Email != "" {
		payload["email"] = p.Email
	}
	if p.Phone != "" {
		payload["phone"] = p.Phone
	}
	if p.DateOfBirth != "" {
		payload["date_of_birth"] = p.DateOfBirth
	}

	req, err := c.newRequest(ctx, http.MethodPost, "patients", nil, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("error creating patient")
		return ""
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("error creating patient")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		c.logUpstreamError("create_patient", resp)
		return ""
	}

	var created Record
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		c.logger.Error().Err(err).Msg("error decoding created patient")
		return ""
	}
	return stringifyID(created["id"])
}

// stringifyID renders an upstream identifier (string or JSON number) as the
// opaque string the API echoes back.
func stringifyID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
