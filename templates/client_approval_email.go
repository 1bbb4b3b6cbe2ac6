package templates

import (
	"bytes"
	"fmt"
	"text/template"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/pkg/utils"
)

const clientApprovalSubject = `Mission quote - {{.Aircraft}} - {{.Start}} to {{.End}}`

const clientApprovalBody = `Hello,

Please find below our quote for the following crew mission.

Aircraft: {{.Aircraft}}
Crew: {{.Crew}}
Mission type: {{.Type}}
Dates: {{.Start}} to {{.End}} ({{.Fees.Duration}} day{{if ne .Fees.Duration 1}}s{{end}})
{{range .Flights}}Flight {{.FlightNumber}}: {{.DepartureAirport}} - {{.ArrivalAirport}}
{{end}}
Crew fees: {{money .Fees.TotalSalary}} {{.Currency}}
Per diem: {{money .Fees.TotalPerDiem}} {{.Currency}}
Service margin: {{money .Fees.Margin}} {{.Currency}}
Total: {{money .Fees.TotalWithMargin}} {{.Currency}}

Please reply to this email to confirm or decline the mission.

Best regards,
Crew Operations
`

// ClientApprovalEmail renders the quote sent to clients after owner approval
type ClientApprovalEmail struct {
	subject *template.Template
	body    *template.Template
}

// NewClientApprovalEmail parses the client quote templates
func NewClientApprovalEmail() *ClientApprovalEmail {
	funcs := template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}
	return &ClientApprovalEmail{
		subject: template.Must(template.New("subject").Parse(clientApprovalSubject)),
		body:    template.Must(template.New("body").Funcs(funcs).Parse(clientApprovalBody)),
	}
}

type clientApprovalView struct {
	Aircraft string
	Crew     string
	Type     entity.MissionType
	Start    string
	End      string
	Flights  []entity.FlightSnapshot
	Fees     entity.Fees
	Currency string
}

// Compose renders subject and body for the mission with the given fees
func (e *ClientApprovalEmail) Compose(m *entity.MissionOrder, f entity.Fees) (string, string, error) {
	aircraft := m.Aircraft.Registration
	if aircraft == "" {
		aircraft = "TBD"
	}
	view := clientApprovalView{
		Aircraft: aircraft,
		Crew:     m.Crew.Name,
		Type:     m.Type,
		Start:    m.Contract.StartDate.Format(utils.DATE_LAYOUT),
		End:      m.Contract.EndDate.Format(utils.DATE_LAYOUT),
		Flights:  m.Flights,
		Fees:     f,
		Currency: f.Currency,
	}

	var subject, body bytes.Buffer
	if err := e.subject.Execute(&subject, view); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	if err := e.body.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return subject.String(), body.String(), nil
}
