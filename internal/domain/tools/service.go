package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/juvomcp/juvomcp/internal/juvonno"
)

// EMR is the slice of the Juvonno client the tool layer depends on.
// *juvonno.Client satisfies it; tests substitute fakes.
type EMR interface {
	ValidateCredentials(ctx context.Context) bool
	GetProviders(ctx context.Context) []juvonno.Record
	GetAvailableSlots(ctx context.Context, q juvonno.SlotQuery) []juvonno.Record
	GetAppointmentTypes(ctx context.Context) []juvonno.Record
	BookAppointment(ctx context.Context, data juvonno.BookingData) (juvonno.Record, error)
}

// ClientFactory builds a credential-scoped EMR client. A fresh client is
// created for every inbound request; nothing is cached across requests.
type ClientFactory func(apiKey, subdomain string) EMR

// passthroughLocationID is the location id that bypasses provider filtering
// entirely. This mirrors upstream scaffolding left in the original service;
// see placeholderLocations.
const passthroughLocationID = "4"

// Service implements the tool operations on top of a per-request EMR client.
type Service struct {
	newClient ClientFactory
	logger    zerolog.Logger
}

// NewService creates the tool service with the given client factory.
func NewService(factory ClientFactory, logger zerolog.Logger) *Service {
	return &Service{newClient: factory, logger: logger}
}

// Client builds a fresh credential-scoped client.
func (s *Service) Client(apiKey, subdomain string) EMR {
	return s.newClient(apiKey, subdomain)
}

// placeholderLocations returns a fixed single-location result regardless of
// the postal code. The upstream Juvonno API has no geocoded location search;
// this placeholder preserves the behavior the service has always had and is
// deliberately isolated here so a real lookup can replace it in one spot.
// TODO: replace with a real branch lookup once the branches endpoint exposes
// postal codes.
func placeholderLocations(postalCode string) []juvonno.Record {
	return []juvonno.Record{
		{
			"id":      4,
			"name":    "MedRehab Group Pickering",
			"address": " 1105 Kingston Rd #11, Pickering, Ontario",
			"phone":   "(905) 837-5000",
			"postal":  "L1V 1B5",
		},
	}
}

// LocationsNearPostalCode lists clinic locations near a postal code.
func (s *Service) LocationsNearPostalCode(ctx context.Context, client EMR, postalCode string) []juvonno.Record {
	return placeholderLocations(postalCode)
}

// ProvidersAtLocation lists providers whose location_id matches the
// requested location. The passthrough id skips filtering; that special case
// is preserved stub behavior, not a business rule.
func (s *Service) ProvidersAtLocation(ctx context.Context, client EMR, locationID, serviceType string) []juvonno.Record {
	providers := client.GetProviders(ctx)

	filtered := make([]juvonno.Record, 0, len(providers))
	for _, p := range providers {
		if recordID(p["location_id"]) == locationID || locationID == passthroughLocationID {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// AvailableSlots lists open slots for a provider in a date window.
func (s *Service) AvailableSlots(ctx context.Context, client EMR, providerID, startDate, endDate string) []juvonno.Record {
	return client.GetAvailableSlots(ctx, juvonno.SlotQuery{
		StartDate:  startDate,
		EndDate:    endDate,
		ProviderID: providerID,
	})
}

// AppointmentTypes lists the tenant's appointment types.
func (s *Service) AppointmentTypes(ctx context.Context, client EMR) []juvonno.Record {
	return client.GetAppointmentTypes(ctx)
}

// BookingInput is the flattened booking request shared by the call-tool path
// and the direct /book-appointment route.
type BookingInput struct {
	ProviderID      string
	AppointmentTime string
	AppointmentType string
	PatientName     string
	PatientEmail    string
	PatientPhone    string
}

// Book resolves the patient and books the appointment, translating the
// outcome into the booking envelope. Booking failure is a business result,
// not a transport error, so it is returned as a {status:"error"} envelope
// rather than propagated.
func (s *Service) Book(ctx context.Context, client EMR, in BookingInput) juvonno.Record {
	first, last := splitName(in.PatientName)
	result, err := client.BookAppointment(ctx, juvonno.BookingData{
		Patient: juvonno.PatientDetails{
			FirstName: first,
			LastName:  last,
			Email:     in.PatientEmail,
			Phone:     in.PatientPhone,
		},
		ProviderID:      in.ProviderID,
		StartTime:       in.AppointmentTime,
		AppointmentType: in.AppointmentType,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("error booking appointment")
		return juvonno.Record{
			"status":  "error",
			"message": "Failed to book appointment: " + err.Error(),
		}
	}
	return juvonno.Record{
		"status":         "success",
		"appointment_id": result["id"],
		"message":        "Appointment booked successfully",
	}
}

// splitName separates a full patient name into first and last name. The
// first word is the first name; everything after it is the last name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// recordID renders an upstream identifier field as a comparable string.
func recordID(v interface{}) string {
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
