package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/sawa-platform/sawa/pkg/domain"
)

// requestFields backs the new service request form.
type requestFields struct {
	title        string
	machineType  string
	serialNumber string

	company         string
	address         string
	contactName     string
	contactPosition string
	contactEmail    string
	contactPhone    string

	serviceTypes []string
	otherService string
	hasHistory   bool
	historyNotes string
	issue        string

	techRequirements []string
	otherRequirement string
	safety           []string

	urgency       string
	preferredDate string
	altDates      string
	budget        string
	payment       string
}

// input converts the form values into the request payload.
func (f *requestFields) input() domain.ServiceRequestInput {
	budget, _ := strconv.ParseFloat(strings.TrimSpace(f.budget), 64)
	var alt []string
	for _, d := range strings.Split(f.altDates, ",") {
		if d = strings.TrimSpace(d); d != "" {
			alt = append(alt, d)
		}
	}
	return domain.ServiceRequestInput{
		Title:                  strings.TrimSpace(f.title),
		MachineType:            strings.TrimSpace(f.machineType),
		SerialNumber:           strings.TrimSpace(f.serialNumber),
		CustomerCompanyName:    strings.TrimSpace(f.company),
		CustomerAddress:        strings.TrimSpace(f.address),
		ContactPersonName:      strings.TrimSpace(f.contactName),
		ContactPersonPosition:  strings.TrimSpace(f.contactPosition),
		ContactEmail:           strings.TrimSpace(f.contactEmail),
		ContactPhone:           strings.TrimSpace(f.contactPhone),
		ServiceTypes:           domain.WithOther(append([]string(nil), f.serviceTypes...), f.otherService),
		HasMaintenanceHistory:  f.hasHistory,
		HistoryNotes:           strings.TrimSpace(f.historyNotes),
		IssueDescription:       strings.TrimSpace(f.issue),
		TechnicianRequirements: domain.WithOther(append([]string(nil), f.techRequirements...), f.otherRequirement),
		SafetyRequirements:     append([]string(nil), f.safety...),
		Urgency:                f.urgency,
		PreferredDate:          strings.TrimSpace(f.preferredDate),
		AlternativeDates:       alt,
		BudgetEUR:              budget,
		PaymentMethod:          f.payment,
		Status:                 domain.RequestOpen,
	}
}

func validDate(s string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

func validBudget(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive amount")
	}
	return nil
}

func atLeastOne(name string) func([]string) error {
	return func(v []string) error {
		if len(v) == 0 {
			return fmt.Errorf("pick at least one %s", name)
		}
		return nil
	}
}

func stringOptions(values []string) []huh.Option[string] {
	opts := make([]huh.Option[string], len(values))
	for i, v := range values {
		opts[i] = huh.NewOption(strings.ReplaceAll(v, "_", " "), v)
	}
	return opts
}

func newRequestForm(f *requestFields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Job title").Value(&f.title).Validate(required("title")),
			huh.NewInput().Title("Machine type").Value(&f.machineType).Validate(required("machine type")),
			huh.NewInput().Title("Serial number").Value(&f.serialNumber).Validate(required("serial number")),
		).Title("Job details"),
		huh.NewGroup(
			huh.NewInput().Title("Company").Value(&f.company).Validate(required("company")),
			huh.NewInput().Title("Address").Value(&f.address).Validate(required("address")),
			huh.NewInput().Title("Contact person").Value(&f.contactName).Validate(required("contact person")),
			huh.NewInput().Title("Position").Value(&f.contactPosition),
			huh.NewInput().Title("Email").Value(&f.contactEmail).Validate(validEmail),
			huh.NewInput().Title("Phone").Value(&f.contactPhone).Validate(required("phone")),
		).Title("Customer details"),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Type of service").
				Options(stringOptions(domain.ServiceTypes)...).
				Value(&f.serviceTypes).
				Validate(atLeastOne("service type")),
			huh.NewInput().Title("Other service").Value(&f.otherService),
			huh.NewConfirm().Title("Maintenance history available?").Value(&f.hasHistory),
			huh.NewInput().Title("History notes").Value(&f.historyNotes),
			huh.NewText().Title("Issue description").Value(&f.issue).Validate(required("issue description")),
		).Title("Service"),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Technician requirements").
				Options(stringOptions(domain.TechnicianRequirements)...).
				Value(&f.techRequirements),
			huh.NewInput().Title("Other requirement").Value(&f.otherRequirement),
			huh.NewMultiSelect[string]().
				Title("Safety & training").
				Options(stringOptions(domain.SafetyRequirements)...).
				Value(&f.safety),
		).Title("Requirements"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Urgency").
				Options(stringOptions(domain.UrgencyLevels)...).
				Value(&f.urgency),
			huh.NewInput().Title("Preferred date").Placeholder("YYYY-MM-DD").Value(&f.preferredDate).Validate(validDate),
			huh.NewInput().Title("Alternative dates").Placeholder("comma separated").Value(&f.altDates),
			huh.NewInput().Title("Budget (EUR)").Value(&f.budget).Validate(validBudget),
			huh.NewSelect[string]().
				Title("Payment method").
				Options(stringOptions(domain.PaymentMethods)...).
				Value(&f.payment),
		).Title("Scheduling & budget"),
	).WithTheme(formTheme()).WithShowHelp(false)
}
