package domain

import "time"

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// ApplicationStatuses is the filter cycle order for application lists ("" = all).
var ApplicationStatuses = []string{"", ApplicationPending, ApplicationAccepted, ApplicationRejected}

// Application is a provider's bid on a service request.
type Application struct {
	ID                       int64     `json:"id"`
	Request                  int64     `json:"request"`
	RequestTitle             string    `json:"request_title,omitempty"`
	ProviderName             string    `json:"provider_name,omitempty"`
	Pitch                    string    `json:"pitch"`
	Comments                 string    `json:"comments,omitempty"`
	AvailableOnPreferredDate bool      `json:"available_on_preferred_date"`
	SuggestedDate            string    `json:"suggested_date,omitempty"`
	PriceAdjustmentEUR       string    `json:"price_adjustment_eur,omitempty"`
	Status                   string    `json:"status"`
	ChatThread               *int64    `json:"chat_thread,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

// ApplicationInput is the payload for applying to a service request.
type ApplicationInput struct {
	Request                  int64  `json:"request"`
	Pitch                    string `json:"pitch"`
	Comments                 string `json:"comments,omitempty"`
	AvailableOnPreferredDate bool   `json:"available_on_preferred_date"`
	SuggestedDate            string `json:"suggested_date,omitempty"`
	PriceAdjustmentEUR       string `json:"price_adjustment_eur,omitempty"`
}
