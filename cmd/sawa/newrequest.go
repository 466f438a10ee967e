package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// resolveChoice matches v against choices exactly, then by case-insensitive
// prefix, so "high" selects "High (Immediate)".
func resolveChoice(v string, choices []string) (string, error) {
	v = strings.TrimSpace(v)
	for _, c := range choices {
		if v == c {
			return c, nil
		}
	}
	var match string
	for _, c := range choices {
		if v != "" && strings.HasPrefix(strings.ToLower(c), strings.ToLower(v)) {
			if match != "" {
				return "", fmt.Errorf("%q is ambiguous", v)
			}
			match = c
		}
	}
	if match == "" {
		return "", fmt.Errorf("invalid value %q (want one of: %s)", v, strings.Join(choices, ", "))
	}
	return match, nil
}

func resolveChoices(vs []string, choices []string) ([]string, error) {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		c, err := resolveChoice(v, choices)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func newRequestsCreateCmd() *cobra.Command {
	var (
		in                     domain.ServiceRequestInput
		otherService, otherReq string
		services, tech, safety []string
		urgency, payment       string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a new service request (buyers)",
		Long: `Post a new service request.

Without --title the command asks for the details interactively. Choice flags
accept a unique prefix, e.g. --urgency high --service repair.`,
		Args: cobra.NoArgs,
		RunE: protected(func(ctx context.Context, a *app, _ []string) error {
			if in.Title == "" {
				if err := requestPrompt(ctx, &in, &services, &urgency, &payment); err != nil {
					return err
				}
			}
			var err error
			if in.ServiceTypes, err = resolveChoices(services, domain.ServiceTypes); err != nil {
				return fmt.Errorf("--service: %w", err)
			}
			in.ServiceTypes = domain.WithOther(in.ServiceTypes, otherService)
			if in.TechnicianRequirements, err = resolveChoices(tech, domain.TechnicianRequirements); err != nil {
				return fmt.Errorf("--tech: %w", err)
			}
			in.TechnicianRequirements = domain.WithOther(in.TechnicianRequirements, otherReq)
			if in.SafetyRequirements, err = resolveChoices(safety, domain.SafetyRequirements); err != nil {
				return fmt.Errorf("--safety: %w", err)
			}
			if urgency != "" {
				if in.Urgency, err = resolveChoice(urgency, domain.UrgencyLevels); err != nil {
					return fmt.Errorf("--urgency: %w", err)
				}
			}
			if payment != "" {
				if in.PaymentMethod, err = resolveChoice(payment, domain.PaymentMethods); err != nil {
					return fmt.Errorf("--payment: %w", err)
				}
			}
			return runRequestsCreate(ctx, a, in)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "Job title")
	f.StringVar(&in.MachineType, "machine-type", "", "Machine type")
	f.StringVar(&in.SerialNumber, "serial", "", "Serial number")
	f.StringVar(&in.CustomerCompanyName, "company", "", "Customer company name")
	f.StringVar(&in.CustomerAddress, "address", "", "Customer address")
	f.StringVar(&in.ContactPersonName, "contact", "", "Contact person")
	f.StringVar(&in.ContactPersonPosition, "position", "", "Contact person position")
	f.StringVar(&in.ContactEmail, "email", "", "Contact email")
	f.StringVar(&in.ContactPhone, "phone", "", "Contact phone")
	f.StringSliceVar(&services, "service", nil, "Service type (repeatable): "+strings.Join(domain.ServiceTypes, ", "))
	f.StringVar(&otherService, "other-service", "", "Service type not in the list")
	f.BoolVar(&in.HasMaintenanceHistory, "history", false, "Maintenance history is available")
	f.StringVar(&in.HistoryNotes, "history-notes", "", "Maintenance history notes")
	f.StringVar(&in.IssueDescription, "issue", "", "Issue description")
	f.StringSliceVar(&tech, "tech", nil, "Technician requirement (repeatable)")
	f.StringVar(&otherReq, "other-tech", "", "Technician requirement not in the list")
	f.StringSliceVar(&safety, "safety", nil, "Safety or training requirement (repeatable)")
	f.StringVar(&urgency, "urgency", "", "Urgency: high, medium or normal")
	f.StringVar(&in.PreferredDate, "date", "", "Preferred date (YYYY-MM-DD)")
	f.StringSliceVar(&in.AlternativeDates, "alt-date", nil, "Alternative date (repeatable)")
	f.Float64Var(&in.BudgetEUR, "budget", 0, "Budget in EUR")
	f.StringVar(&payment, "payment", "", "Payment method: "+strings.Join(domain.PaymentMethods, ", "))
	return cmd
}

// requestPrompt asks for the required request fields.
func requestPrompt(ctx context.Context, in *domain.ServiceRequestInput, services *[]string, urgency, payment *string) error {
	budget := ""
	if in.BudgetEUR > 0 {
		budget = strconv.FormatFloat(in.BudgetEUR, 'f', -1, 64)
	}
	serviceOpts := huh.NewOptions(domain.ServiceTypes...)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Job title").Value(&in.Title).Validate(notEmpty("title")),
			huh.NewInput().Title("Machine type").Value(&in.MachineType).Validate(notEmpty("machine type")),
			huh.NewInput().Title("Serial number").Value(&in.SerialNumber).Validate(notEmpty("serial number")),
		).Title("Job details"),
		huh.NewGroup(
			huh.NewInput().Title("Company").Value(&in.CustomerCompanyName).Validate(notEmpty("company")),
			huh.NewInput().Title("Address").Value(&in.CustomerAddress).Validate(notEmpty("address")),
			huh.NewInput().Title("Contact person").Value(&in.ContactPersonName).Validate(notEmpty("contact person")),
			huh.NewInput().Title("Email").Value(&in.ContactEmail).Validate(notEmpty("email")),
			huh.NewInput().Title("Phone").Value(&in.ContactPhone).Validate(notEmpty("phone")),
		).Title("Customer details"),
		huh.NewGroup(
			huh.NewMultiSelect[string]().Title("Type of service").Options(serviceOpts...).Value(services),
			huh.NewText().Title("Issue description").Value(&in.IssueDescription).Validate(notEmpty("issue description")),
		).Title("Service"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Urgency").Options(huh.NewOptions(domain.UrgencyLevels...)...).Value(urgency),
			huh.NewInput().Title("Preferred date").Placeholder("YYYY-MM-DD").Value(&in.PreferredDate).Validate(notEmpty("preferred date")),
			huh.NewInput().Title("Budget (EUR)").Value(&budget).Validate(notEmpty("budget")),
			huh.NewSelect[string]().Title("Payment method").Options(huh.NewOptions(domain.PaymentMethods...)...).Value(payment),
		).Title("Scheduling & budget"),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(budget), 64)
	if err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	in.BudgetEUR = v
	return nil
}

func runRequestsCreate(ctx context.Context, a *app, in domain.ServiceRequestInput) error {
	if u := a.session.User(); u != nil && !u.IsBuyer() {
		return errors.New("only buyers can post service requests")
	}
	if errs := in.Validate(); errs != nil {
		fields := make([]string, 0, len(errs))
		for k := range errs {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, k := range fields {
			fmt.Fprintf(a.out, "  %s: %s\n", strings.ReplaceAll(k, "_", " "), errs[k]) //nolint:errcheck
		}
		return errors.New("request incomplete")
	}
	created, err := fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.ServiceRequest, error) {
		return a.api.CreateServiceRequest(ctx, in)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(created)
	}
	fmt.Fprintf(a.out, "Request #%d posted: %s\n", created.ID, created.Title) //nolint:errcheck
	return nil
}
