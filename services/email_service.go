package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sahilchouksey/fee-management/config"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// ErrEmailNotConfigured is returned when no mail transport is set up
var ErrEmailNotConfigured = errors.New("email is not configured")

// EmailMessage is one rendered email
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers rendered messages
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailService renders fee emails and hands them to a Mailer
type EmailService struct {
	mailer   Mailer
	appName  string
	location *time.Location
}

// NewEmailService picks SendGrid when an API key is set and SMTP when SMTP
// credentials are. With neither, the service is not configured and every send
// is skipped.
func NewEmailService(env *config.EnviornmentVariable) *EmailService {
	var mailer Mailer
	switch {
	case env.SENDGRID_API_KEY != "":
		mailer = &sendgridMailer{
			key:  env.SENDGRID_API_KEY,
			from: sgmail.NewEmail(env.FROM_NAME, env.FROM_EMAIL),
		}
	case env.SMTP_HOST != "" && env.SMTP_USERNAME != "" && env.SMTP_PASSWORD != "":
		mailer = &smtpMailer{
			host:     env.SMTP_HOST,
			port:     env.SMTP_PORT,
			username: env.SMTP_USERNAME,
			password: env.SMTP_PASSWORD,
			from:     env.FROM_EMAIL,
			fromName: env.FROM_NAME,
		}
	}
	return NewEmailServiceWithMailer(mailer, env.FROM_NAME, env.Location)
}

// NewEmailServiceWithMailer builds the service around an explicit transport
func NewEmailServiceWithMailer(mailer Mailer, appName string, loc *time.Location) *EmailService {
	if loc == nil {
		loc = time.Local
	}
	if appName == "" {
		appName = "Fee Management"
	}
	return &EmailService{mailer: mailer, appName: appName, location: loc}
}

// IsConfigured checks if a mail transport is available
func (e *EmailService) IsConfigured() bool {
	return e != nil && e.mailer != nil
}

// feeEmail is the data every fee template renders
type feeEmail struct {
	AppName      string
	StudentName  string
	Heading      string
	Intro        string
	Course       string
	AcademicYear string
	Assigned     string
	Paid         string
	Balance      string
	Status       string
	DueDate      string
	Payment      *paymentLine
}

type paymentLine struct {
	Amount      string
	Method      string
	ReferenceNo string
	PaidAt      string
}

var feeEmailTemplate = template.Must(template.New("fee").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Heading}}</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #1f3a5f;">{{.Heading}}</h2>
  <p>Hello {{.StudentName}},</p>
  <p>{{.Intro}}</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr><td>Course</td><td><strong>{{.Course}}</strong></td></tr>
    <tr><td>Academic year</td><td>{{.AcademicYear}}</td></tr>
    <tr><td>Amount assigned</td><td>{{.Assigned}}</td></tr>
    <tr><td>Amount paid</td><td>{{.Paid}}</td></tr>
    <tr><td>Balance</td><td><strong>{{.Balance}}</strong></td></tr>
    <tr><td>Status</td><td>{{.Status}}</td></tr>
    <tr><td>Due date</td><td>{{.DueDate}}</td></tr>
  </table>
  {{with .Payment}}
  <h3>Payment received</h3>
  <p>{{.Amount}} by {{.Method}} on {{.PaidAt}}{{if .ReferenceNo}} (reference {{.ReferenceNo}}){{end}}</p>
  {{end}}
  <p style="margin-top: 30px; font-size: 12px; color: #666;">{{.AppName}}</p>
</body>
</html>`))

func (e *EmailService) feeData(student *model.Student, fee *model.StudentFee) feeEmail {
	ledger := fee.Ledger()
	return feeEmail{
		AppName:      e.appName,
		StudentName:  student.FullName(),
		Course:       fee.Course,
		AcademicYear: fee.AcademicYear,
		Assigned:     ledger.AmountAssigned.StringFixed(fees.CurrencyScale),
		Paid:         ledger.AmountPaid.StringFixed(fees.CurrencyScale),
		Balance:      ledger.Balance().StringFixed(fees.CurrencyScale),
		Status:       string(ledger.Status),
		DueDate:      fee.DueDate.In(e.location).Format("02 Jan 2006"),
	}
}

func (e *EmailService) send(ctx context.Context, student *model.Student, subject string, data feeEmail) error {
	if !e.IsConfigured() {
		return ErrEmailNotConfigured
	}

	var body bytes.Buffer
	if err := feeEmailTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	text, err := htmlToText(body.String())
	if err != nil {
		return fmt.Errorf("failed to render plain text email: %w", err)
	}

	return e.mailer.Send(ctx, EmailMessage{
		To:      student.Email,
		ToName:  student.FullName(),
		Subject: fmt.Sprintf("[%s] %s", e.appName, subject),
		HTML:    body.String(),
		Text:    text,
	})
}

// SendFeeAssigned tells a student about a new fee
func (e *EmailService) SendFeeAssigned(ctx context.Context, student *model.Student, fee *model.StudentFee) error {
	data := e.feeData(student, fee)
	data.Heading = "New fee assigned"
	data.Intro = fmt.Sprintf("A fee of %s has been assigned to you for %s %s.", data.Assigned, data.Course, data.AcademicYear)
	return e.send(ctx, student, "Fee assigned for "+fee.AcademicYear, data)
}

// SendPaymentReceipt confirms a recorded payment
func (e *EmailService) SendPaymentReceipt(ctx context.Context, student *model.Student, fee *model.StudentFee, payment *model.Payment) error {
	data := e.feeData(student, fee)
	data.Heading = "Payment receipt"
	data.Intro = fmt.Sprintf("We received your payment of %s.", payment.Amount.StringFixed(fees.CurrencyScale))
	data.Payment = &paymentLine{
		Amount:      payment.Amount.StringFixed(fees.CurrencyScale),
		Method:      string(payment.Method),
		ReferenceNo: payment.ReferenceNo,
		PaidAt:      payment.PaidAt.In(e.location).Format("02 Jan 2006"),
	}
	return e.send(ctx, student, "Payment received", data)
}

// SendFeeReminder reminds a student of an unpaid balance
func (e *EmailService) SendFeeReminder(ctx context.Context, student *model.Student, fee *model.StudentFee, overdue bool) error {
	data := e.feeData(student, fee)
	subject := "Fee due on " + data.DueDate
	if overdue {
		data.Heading = "Fee overdue"
		data.Intro = fmt.Sprintf("Your fee for %s was due on %s and %s is still outstanding.", data.Course, data.DueDate, data.Balance)
		subject = "Fee overdue"
	} else {
		data.Heading = "Fee reminder"
		data.Intro = fmt.Sprintf("Your fee for %s is due on %s. Outstanding balance: %s.", data.Course, data.DueDate, data.Balance)
	}
	return e.send(ctx, student, subject, data)
}

// sendgridMailer sends through the SendGrid v3 API
type sendgridMailer struct {
	key  string
	from *sgmail.Email
}

func (m *sendgridMailer) Send(_ context.Context, msg EmailMessage) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", res.StatusCode, res.Body)
	}
	log.Printf("Email %q sent to %s", msg.Subject, msg.To)
	return nil
}

// smtpMailer sends through an SMTP relay with STARTTLS
type smtpMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

func (m *smtpMailer) Send(_ context.Context, msg EmailMessage) error {
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", m.fromName, m.from)},
		{"To", msg.To},
		{"Subject", msg.Subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	message.WriteString("\r\n")
	message.WriteString(msg.HTML)

	addr := m.host + ":" + m.port
	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if err := conn.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := conn.Mail(m.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()
	log.Printf("Email %q sent to %s", msg.Subject, msg.To)
	return nil
}
