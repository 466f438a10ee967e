package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sawa-platform/sawa/pkg/client"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// -- messages --

type requestsLoadedMsg struct {
	status string
	items  []domain.ServiceRequest
	err    error
}

type requestActionMsg struct {
	verb string // "deleted", "applied" or "created"
	id   int64
	err  error
}

// applyFields backs the application form.
type applyFields struct {
	pitch     string
	comments  string
	available bool
	suggested string
	price     string
}

// -- model --

type requestsModel struct {
	client   *client.Client
	session  Session
	items    []domain.ServiceRequest
	cursor   int
	filter   string
	expanded bool
	err      string
	status   string
	loading  bool
	role     string
	width    int
	height   int

	confirmDelete int64 // request awaiting y/n, 0 = none

	applyFor int64
	apply    *applyFields
	draft    *requestFields
	form     *huh.Form
}

func newRequestsModel(c *client.Client, s Session) requestsModel {
	return requestsModel{client: c, session: s, loading: true}
}

func (m requestsModel) Init() tea.Cmd {
	return m.loadRequests()
}

func (m requestsModel) editing() bool {
	return m.form != nil || m.confirmDelete != 0
}

func (m requestsModel) loadRequests() tea.Cmd {
	c := m.client
	status := m.filter
	return load(m.session,
		func(ctx context.Context) (domain.List[domain.ServiceRequest], error) {
			return c.ListServiceRequests(ctx, status)
		},
		func(l domain.List[domain.ServiceRequest], err error) tea.Msg {
			return requestsLoadedMsg{status: status, items: l.Items, err: err}
		})
}

func (m requestsModel) deleteRequest(id int64) tea.Cmd {
	c := m.client
	return act(m.session,
		func(ctx context.Context) error { return c.DeleteServiceRequest(ctx, id) },
		func(err error) tea.Msg { return requestActionMsg{verb: "deleted", id: id, err: err} })
}

func (m requestsModel) submitApplication() tea.Cmd {
	c := m.client
	in := domain.ApplicationInput{
		Request:                  m.applyFor,
		Pitch:                    strings.TrimSpace(m.apply.pitch),
		Comments:                 strings.TrimSpace(m.apply.comments),
		AvailableOnPreferredDate: m.apply.available,
		SuggestedDate:            strings.TrimSpace(m.apply.suggested),
		PriceAdjustmentEUR:       strings.TrimSpace(m.apply.price),
	}
	return act(m.session,
		func(ctx context.Context) error {
			_, err := c.CreateApplication(ctx, in)
			return err
		},
		func(err error) tea.Msg { return requestActionMsg{verb: "applied", id: in.Request, err: err} })
}

func (m requestsModel) submitRequest() tea.Cmd {
	c := m.client
	in := m.draft.input()
	return act(m.session,
		func(ctx context.Context) error {
			_, err := c.CreateServiceRequest(ctx, in)
			return err
		},
		func(err error) tea.Msg { return requestActionMsg{verb: "created", err: err} })
}

func newApplyForm(f *applyFields, title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Pitch").
				Description("Why you are the right provider for this job.").
				Value(&f.pitch).
				Validate(required("pitch")),
			huh.NewConfirm().
				Title("Available on the preferred date?").
				Value(&f.available),
			huh.NewInput().
				Title("Suggested date").
				Placeholder("YYYY-MM-DD").
				Value(&f.suggested),
			huh.NewInput().
				Title("Price adjustment (EUR)").
				Value(&f.price),
			huh.NewInput().
				Title("Comments").
				Value(&f.comments),
		).Title("Apply to " + title),
	).WithTheme(formTheme()).WithShowHelp(false)
}

func (m requestsModel) selected() (domain.ServiceRequest, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return domain.ServiceRequest{}, false
	}
	return m.items[m.cursor], true
}

func (m requestsModel) Update(msg tea.Msg) (requestsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case meLoadedMsg:
		if msg.me != nil {
			m.role = msg.me.Role
		}
		return m, nil

	case requestsLoadedMsg:
		if msg.status != m.filter {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = errText(msg.err)
			return m, nil
		}
		m.err = ""
		m.items = msg.items
		m.cursor = moveCursor(m.cursor, 0, len(m.items))
		return m, nil

	case requestActionMsg:
		if msg.err != nil {
			m.status = msg.verb + " failed: " + errText(msg.err)
			if lines := fieldErrorLines(client.FieldErrors(msg.err)); len(lines) > 0 {
				m.status = msg.verb + " failed: " + strings.Join(lines, "; ")
			}
			return m, nil
		}
		switch msg.verb {
		case "deleted":
			m.status = fmt.Sprintf("request #%d deleted", msg.id)
		case "created":
			m.status = "request posted"
			m.draft = nil
		default:
			m.status = fmt.Sprintf("applied to request #%d", msg.id)
		}
		m.loading = true
		return m, m.loadRequests()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(k)
	}
	return m, nil
}

func (m requestsModel) updateForm(msg tea.Msg) (requestsModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.form = nil
		if m.draft != nil {
			m.draft = nil
			m.status = "new request cancelled"
		} else {
			m.status = "application cancelled"
		}
		return m, nil
	}
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.form = nil
		if m.draft != nil {
			if errs := m.draft.input().Validate(); errs != nil {
				m.status = "request incomplete: " + strings.Join(validationLines(errs), "; ")
				m.form = newRequestForm(m.draft)
				return m, m.form.Init()
			}
			m.status = "posting request..."
			return m, m.submitRequest()
		}
		m.status = "sending application..."
		return m, m.submitApplication()
	}
	return m, cmd
}

func (m requestsModel) handleKey(msg tea.KeyMsg) (requestsModel, tea.Cmd) {
	if m.confirmDelete != 0 {
		id := m.confirmDelete
		m.confirmDelete = 0
		if msg.String() == "y" {
			m.status = fmt.Sprintf("deleting request #%d...", id)
			return m, m.deleteRequest(id)
		}
		m.status = ""
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		m.cursor = moveCursor(m.cursor, 1, len(m.items))
	case "k", "up":
		m.cursor = moveCursor(m.cursor, -1, len(m.items))
	case "enter":
		m.expanded = !m.expanded
	case "f":
		m.filter = nextFilter(domain.RequestStatuses, m.filter)
		m.cursor = 0
		m.loading = true
		return m, m.loadRequests()
	case "r":
		m.loading = true
		return m, m.loadRequests()
	case "d":
		if r, ok := m.selected(); ok && m.role == domain.RoleBuyer {
			m.confirmDelete = r.ID
			m.status = fmt.Sprintf("delete %q? y to confirm", r.Title)
		}
	case "n":
		if m.role != domain.RoleBuyer {
			return m, nil
		}
		m.draft = &requestFields{urgency: domain.UrgencyLevels[len(domain.UrgencyLevels)-1], payment: domain.PaymentMethods[0]}
		m.form = newRequestForm(m.draft)
		m.status = ""
		return m, m.form.Init()
	case "a":
		r, ok := m.selected()
		if !ok || m.role != domain.RoleProvider {
			return m, nil
		}
		if r.Status != domain.RequestOpen {
			m.status = "only open requests accept applications"
			return m, nil
		}
		m.applyFor = r.ID
		m.apply = &applyFields{available: true}
		m.form = newApplyForm(m.apply, r.Title)
		m.status = ""
		return m, m.form.Init()
	}
	return m, nil
}

func (m requestsModel) View() string {
	var b strings.Builder
	title := "Service Requests"
	if m.role == domain.RoleProvider {
		title = "Open Jobs"
	}
	b.WriteString(" " + titleStyle.Render(title) + "  " +
		metaStyle.Render("status: ") + accentStyle.Render(filterLabel(m.filter)) + "\n")
	b.WriteString(separator(m.width) + "\n")

	if m.form != nil {
		b.WriteString(m.form.View())
		return b.String()
	}
	if m.loading && len(m.items) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.items) == 0 {
		b.WriteString("\n " + dimStyle.Render("no requests "+filterSuffix(m.filter)) + "\n")
	}

	for i, r := range m.items {
		cursor := "  "
		title := normalStyle.Render(truncStr(r.Title, 40))
		if i == m.cursor {
			cursor = accentStyle.Render("▸") + " "
			title = selectedStyle.Render(truncStr(r.Title, 40))
		}
		fmt.Fprintf(&b, " %s%s  %s  %s  %s\n",
			cursor,
			title,
			StatusStyle(r.Status).Render(r.Status),
			dimStyle.Render(r.MachineType),
			metaStyle.Render(formatTime(r.CreatedAt)),
		)
		if i == m.cursor && m.expanded {
			b.WriteString(requestDetail(r))
		}
	}

	if m.status != "" {
		b.WriteString("\n " + dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

// validationLines renders field → message pairs in field order.
func validationLines(errs map[string]string) []string {
	fields := make(map[string][]string, len(errs))
	for k, v := range errs {
		fields[k] = []string{v}
	}
	return fieldErrorLines(fields)
}

func filterSuffix(filter string) string {
	if filter == "" {
		return "yet"
	}
	return "with status " + filter
}

func requestDetail(r domain.ServiceRequest) string {
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "      %s %s\n", metaStyle.Render(fmt.Sprintf("%-10s", label)), normalStyle.Render(value))
	}
	row("company", r.CustomerCompanyName)
	row("serial", r.SerialNumber)
	row("services", strings.Join(r.ServiceTypes, ", "))
	row("urgency", r.Urgency)
	row("date", r.PreferredDate)
	if r.BudgetEUR != "" {
		row("budget", "€"+r.BudgetEUR)
	}
	row("payment", r.PaymentMethod)
	row("issue", oneLine(r.IssueDescription))
	return b.String()
}

func (m requestsModel) helpKeys() string {
	if m.form != nil {
		return helpEntry("enter", "next") + "  " + helpEntry("esc", "cancel")
	}
	if m.confirmDelete != 0 {
		return helpEntry("y", "delete") + "  " + helpEntry("any", "cancel")
	}
	keys := []string{helpEntry("j/k", "nav"), helpEntry("enter", "details"), helpEntry("f", "filter")}
	switch m.role {
	case domain.RoleBuyer:
		keys = append(keys, helpEntry("n", "new"), helpEntry("d", "delete"))
	case domain.RoleProvider:
		keys = append(keys, helpEntry("a", "apply"))
	}
	keys = append(keys, helpEntry("r", "reload"), helpEntry("h", "help"), helpEntry("q", "quit"))
	return strings.Join(keys, "  ")
}
