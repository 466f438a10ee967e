package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// profileFlags are the editable role profile fields. Only flags the user set
// are applied.
type profileFlags struct {
	cmd          *cobra.Command
	firstName    string
	lastName     string
	email        string
	phone        string
	bio          string
	location     string
	skills       []string
	experience   string
	hourlyRate   string
	availability string
}

func (pf *profileFlags) register(cmd *cobra.Command) {
	pf.cmd = cmd
	f := cmd.Flags()
	f.StringVar(&pf.firstName, "first-name", "", "First name")
	f.StringVar(&pf.lastName, "last-name", "", "Last name")
	f.StringVar(&pf.email, "email", "", "Email")
	f.StringVar(&pf.phone, "phone", "", "Phone")
	f.StringVar(&pf.bio, "bio", "", "Short bio")
	f.StringVar(&pf.location, "location", "", "Location")
	f.StringSliceVar(&pf.skills, "skill", nil, "Skill (repeatable, providers)")
	f.StringVar(&pf.experience, "experience", "", "Experience (providers)")
	f.StringVar(&pf.hourlyRate, "hourly-rate", "", "Hourly rate in EUR (providers)")
	f.StringVar(&pf.availability, "availability", "", "Availability: "+strings.Join(domain.Availabilities, ", "))
}

func (pf *profileFlags) changed(name string) bool {
	return pf.cmd != nil && pf.cmd.Flags().Changed(name)
}

// anySet reports whether a field flag was given.
func (pf *profileFlags) anySet() bool {
	for _, name := range []string{"first-name", "last-name", "email", "phone", "bio", "location", "skill", "experience", "hourly-rate", "availability"} {
		if pf.changed(name) {
			return true
		}
	}
	return false
}

// apply overlays the given flags on p.
func (pf *profileFlags) apply(p *domain.RoleProfile) error {
	set := func(name string, dst *string, v string) {
		if pf.changed(name) {
			*dst = strings.TrimSpace(v)
		}
	}
	set("first-name", &p.User.FirstName, pf.firstName)
	set("last-name", &p.User.LastName, pf.lastName)
	set("email", &p.User.Email, pf.email)
	set("phone", &p.Phone, pf.phone)
	set("bio", &p.Bio, pf.bio)
	set("location", &p.Location, pf.location)
	set("experience", &p.Experience, pf.experience)
	if pf.changed("skill") {
		p.Skills = pf.skills
	}
	if pf.changed("hourly-rate") {
		p.HourlyRate = domain.Amount(strings.TrimSpace(pf.hourlyRate))
	}
	if pf.changed("availability") {
		if pf.availability == "" || oneOf(pf.availability, append([]string{""}, domain.Availabilities...)) != nil {
			return fmt.Errorf("--availability: invalid value %q (want one of: %s)", pf.availability, strings.Join(domain.Availabilities, ", "))
		}
		p.Availability = pf.availability
	}
	return nil
}

func runProfile(ctx context.Context, a *app) error {
	u := a.session.User()
	var details *domain.RoleProfile
	if u != nil && u.Role != "" {
		var err error
		details, err = fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.RoleProfile, error) {
			return a.api.GetRoleProfile(ctx, u.Role)
		})
		if err != nil {
			return err
		}
	}
	if a.json {
		account, err := fetch.Do(ctx, a.session, a.api.GetProfile)
		if err != nil {
			return err
		}
		return a.printJSON(struct {
			Account *domain.User        `json:"account"`
			Profile *domain.RoleProfile `json:"profile,omitempty"`
		}{account, details})
	}
	if err := runWhoami(ctx, a, true); err != nil {
		return err
	}
	if details != nil {
		printRoleProfile(a, u.Role, details)
	}
	return nil
}

func printRoleProfile(a *app, role string, p *domain.RoleProfile) {
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(a.out, "  %-11s %s\n", label+":", value) //nolint:errcheck
		}
	}
	row("phone", p.Phone)
	row("location", p.Location)
	row("bio", p.Bio)
	if role == domain.RoleProvider {
		row("skills", strings.Join(p.Skills, ", "))
		row("experience", p.Experience)
		if p.HourlyRate != "" {
			row("rate", "€"+string(p.HourlyRate)+"/h")
		}
		row("available", p.Availability)
	}
}

func runProfileEdit(ctx context.Context, a *app, pf profileFlags) error {
	u := a.session.User()
	if u == nil || u.Role == "" {
		return fmt.Errorf("your account has no buyer or provider role")
	}
	current, err := fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.RoleProfile, error) {
		return a.api.GetRoleProfile(ctx, u.Role)
	})
	if err != nil {
		return err
	}
	p := *current
	if pf.anySet() {
		if err := pf.apply(&p); err != nil {
			return err
		}
	} else if err := profilePrompt(ctx, &p, u.Role); err != nil {
		return err
	}

	saved, err := fetch.Do(ctx, a.session, func(ctx context.Context) (*domain.RoleProfile, error) {
		return a.api.UpdateRoleProfile(ctx, u.Role, p)
	})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(saved)
	}
	fmt.Fprintln(a.out, "Profile updated.") //nolint:errcheck
	printRoleProfile(a, u.Role, saved)
	return nil
}

func profilePrompt(ctx context.Context, p *domain.RoleProfile, role string) error {
	skills := strings.Join(p.Skills, ", ")
	rate := string(p.HourlyRate)
	if p.Availability == "" {
		p.Availability = domain.Availabilities[0]
	}
	groups := []*huh.Group{huh.NewGroup(
		huh.NewInput().Title("First name").Value(&p.User.FirstName),
		huh.NewInput().Title("Last name").Value(&p.User.LastName),
		huh.NewInput().Title("Email").Value(&p.User.Email),
		huh.NewInput().Title("Phone").Value(&p.Phone),
		huh.NewInput().Title("Location").Value(&p.Location),
		huh.NewText().Title("Bio").Value(&p.Bio),
	)}
	if role == domain.RoleProvider {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().Title("Skills").Placeholder("comma separated").Value(&skills),
			huh.NewInput().Title("Experience").Value(&p.Experience),
			huh.NewInput().Title("Hourly rate (EUR)").Value(&rate),
			huh.NewSelect[string]().Title("Availability").Options(huh.NewOptions(domain.Availabilities...)...).Value(&p.Availability),
		))
	}
	if err := huh.NewForm(groups...).RunWithContext(ctx); err != nil {
		return err
	}
	p.Skills = []string{}
	for _, s := range strings.Split(skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			p.Skills = append(p.Skills, s)
		}
	}
	p.HourlyRate = domain.Amount(strings.TrimSpace(rate))
	return nil
}
