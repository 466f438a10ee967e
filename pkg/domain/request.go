package domain

import (
	"regexp"
	"strings"
	"time"
)

// Service request statuses.
const (
	RequestOpen      = "open"
	RequestAssigned  = "assigned"
	RequestCompleted = "completed"
	RequestCancelled = "cancelled"
)

// RequestStatuses is the filter cycle order for request lists ("" = all).
var RequestStatuses = []string{"", RequestOpen, RequestAssigned, RequestCompleted, RequestCancelled}

// ServiceRequest is a maintenance or repair job posted by a buyer.
type ServiceRequest struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	MachineType         string    `json:"machine_type"`
	SerialNumber        string    `json:"serial_number,omitempty"`
	CustomerCompanyName string    `json:"customer_company_name,omitempty"`
	IssueDescription    string    `json:"issue_description,omitempty"`
	ServiceTypes        []string  `json:"service_types,omitempty"`
	Urgency             string    `json:"urgency,omitempty"`
	PreferredDate       string    `json:"preferred_date,omitempty"`
	BudgetEUR           string    `json:"budget_eur,omitempty"`
	PaymentMethod       string    `json:"payment_method,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

// Choices offered when creating a service request.
var (
	ServiceTypes           = []string{"Maintenance", "Repair", "Inspection", "Installation", "Training & Education"}
	TechnicianRequirements = []string{"PLC (Siemens, Beckhoff, etc)", "Hydraulics", "CNC", "Robotics", "Pneumatics"}
	SafetyRequirements     = []string{"Safety Certificate", "Occupational Safety Training", "First Aid Course"}
	UrgencyLevels          = []string{"High (Immediate)", "Medium (Within 3 Days)", "Normal (Within a Week)"}
	PaymentMethods         = []string{"bank_transfer", "credit_card", "invoice", "cash"}
)

// ServiceRequestInput is the payload for posting a new service request.
type ServiceRequestInput struct {
	Title                  string   `json:"title"`
	MachineType            string   `json:"machine_type"`
	SerialNumber           string   `json:"serial_number"`
	CustomerCompanyName    string   `json:"customer_company_name"`
	CustomerAddress        string   `json:"customer_address"`
	ContactPersonName      string   `json:"contact_person_name"`
	ContactPersonPosition  string   `json:"contact_person_position"`
	ContactEmail           string   `json:"contact_email"`
	ContactPhone           string   `json:"contact_phone"`
	ServiceTypes           []string `json:"service_types"`
	HasMaintenanceHistory  bool     `json:"has_maintenance_history"`
	HistoryNotes           string   `json:"history_notes"`
	IssueDescription       string   `json:"issue_description"`
	TechnicianRequirements []string `json:"technician_requirements"`
	SafetyRequirements     []string `json:"safety_requirements"`
	Urgency                string   `json:"urgency"`
	PreferredDate          string   `json:"preferred_date"`
	AlternativeDates       []string `json:"alternative_dates"`
	BudgetEUR              float64  `json:"budget_eur"`
	PaymentMethod          string   `json:"payment_method"`
	Status                 string   `json:"status"`
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Validate returns a message per missing or invalid field, or nil.
func (in ServiceRequestInput) Validate() map[string]string {
	errs := make(map[string]string)
	need := func(field, value, msg string) {
		if strings.TrimSpace(value) == "" {
			errs[field] = msg
		}
	}
	need("title", in.Title, "Job title is required")
	need("machine_type", in.MachineType, "Machine type is required")
	need("serial_number", in.SerialNumber, "Serial number is required")
	need("customer_company_name", in.CustomerCompanyName, "Company name is required")
	need("customer_address", in.CustomerAddress, "Address is required")
	need("contact_person_name", in.ContactPersonName, "Contact person is required")
	need("contact_email", in.ContactEmail, "Email is required")
	need("contact_phone", in.ContactPhone, "Phone is required")
	if in.ContactEmail != "" && !emailPattern.MatchString(in.ContactEmail) {
		errs["contact_email"] = "Valid email is required"
	}
	if len(in.ServiceTypes) == 0 {
		errs["service_types"] = "At least one service type is required"
	}
	need("issue_description", in.IssueDescription, "Issue description is required")
	need("urgency", in.Urgency, "Urgency level is required")
	need("preferred_date", in.PreferredDate, "Preferred date is required")
	if in.BudgetEUR <= 0 {
		errs["budget_eur"] = "Valid budget is required"
	}
	need("payment_method", in.PaymentMethod, "Payment method is required")
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// WithOther appends a free-text "other" entry to a checklist selection.
func WithOther(selected []string, other string) []string {
	other = strings.TrimSpace(other)
	if other == "" {
		return selected
	}
	return append(selected, other)
}
