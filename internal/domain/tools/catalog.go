// Package tools implements the MCP-style tool surface: a static tool
// catalogue, a stateless dispatcher that maps tool calls onto the Juvonno
// client, and the Echo handler exposing both plus direct per-tool routes.
package tools

// Tool names accepted by the dispatcher.
const (
	ToolGetLocations      = "get_locations_by_postal_code"
	ToolGetProviders      = "get_providers_by_location"
	ToolGetAvailableSlots = "get_available_slots"
	ToolBookAppointment   = "book_appointment"
)

// Property describes one tool parameter in the catalogue.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Parameters is the JSON-schema shaped parameter block of a tool.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Descriptor declares one tool for discovery by calling agents.
type Descriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// credentialProps are the tenant credentials every tool requires.
func credentialProps() map[string]Property {
	return map[string]Property{
		"subdomain": {Type: "string", Description: "Juvonno subdomain (e.g., 'medrehabgroup')"},
		"api_key":   {Type: "string", Description: "Juvonno API key for authentication"},
	}
}

func withCredentials(props map[string]Property) map[string]Property {
	for k, v := range credentialProps() {
		props[k] = v
	}
	return props
}

// Catalog returns the static tool catalogue. It is a pure function of no
// input; successive calls produce identical content.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			Name:        ToolGetLocations,
			Description: "Find Juvonno clinic locations near a postal code",
			Parameters: Parameters{
				Type: "object",
				Properties: withCredentials(map[string]Property{
					"postal_code": {Type: "string", Description: "Postal code to search near (e.g., 'L1V 1B5')"},
				}),
				Required: []string{"postal_code", "subdomain", "api_key"},
			},
		},
		{
			Name:        ToolGetProviders,
			Description: "Get healthcare providers at a specific location",
			Parameters: Parameters{
				Type: "object",
				Properties: withCredentials(map[string]Property{
					"location_id":  {Type: "string", Description: "ID of the clinic location"},
					"service_type": {Type: "string", Description: "Type of service (massage, chiropractic, physiotherapy, etc.)"},
				}),
				Required: []string{"location_id", "service_type", "subdomain", "api_key"},
			},
		},
		{
			Name:        ToolGetAvailableSlots,
			Description: "Get available appointment slots for a provider",
			Parameters: Parameters{
				Type: "object",
				Properties: withCredentials(map[string]Property{
					"provider_id": {Type: "string", Description: "ID of the healthcare provider"},
					"start_date":  {Type: "string", Description: "Start date for availability search (YYYY-MM-DD)"},
					"end_date":    {Type: "string", Description: "End date for availability search (YYYY-MM-DD)"},
				}),
				Required: []string{"provider_id", "start_date", "end_date", "subdomain", "api_key"},
			},
		},
		{
			Name:        ToolBookAppointment,
			Description: "Book a new patient appointment",
			Parameters: Parameters{
				Type: "object",
				Properties: withCredentials(map[string]Property{
					"provider_id":      {Type: "string", Description: "ID of the healthcare provider"},
					"appointment_time": {Type: "string", Description: "Appointment date and time (ISO format: YYYY-MM-DDTHH:MM:SS)"},
					"appointment_type": {Type: "string", Description: "Type of appointment (e.g., 'New Patient')"},
					"patient_name":     {Type: "string", Description: "Full name of the patient"},
					"patient_email":    {Type: "string", Description: "Email address of the patient"},
					"patient_phone":    {Type: "string", Description: "Phone number of the patient"},
				}),
				Required: []string{
					"provider_id", "appointment_time", "appointment_type",
					"patient_name", "patient_email", "patient_phone",
					"subdomain", "api_key",
				},
			},
		},
	}
}
