package mail

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"os"
	"strconv"

	gomail "gopkg.in/gomail.v2"

	"github.com/joy095/busline/logger"
	"github.com/joy095/busline/models/booking_models"
)

// Email template paths inside the embedded FS.
const (
	bookingConfirmedTemplate = "templates/email/booking_confirmed.html"
	bookingCancelledTemplate = "templates/email/booking_cancelled.html"
)

var emailTemplates *template.Template

// InitTemplates parses the embedded email templates once at startup.
func InitTemplates(fs embed.FS) {
	emailTemplates = template.Must(template.ParseFS(fs, "templates/email/*.html"))
}

// Mailer sends booking notifications over SMTP. Callers treat it as
// fire-and-forget: failures are logged and never affect the booking.
type Mailer struct{}

func NewMailer() *Mailer {
	return &Mailer{}
}

type bookingEmailData struct {
	StopPair string
	Seats    []int
	Fare     int
	BusType  string
	TripDate string
	TripTime string
}

func emailData(b *booking_models.Booking) bookingEmailData {
	return bookingEmailData{
		StopPair: b.StopPair,
		Seats:    b.SeatNumbers,
		Fare:     b.Fare,
		BusType:  b.BusType,
		TripDate: b.TripDate.Format("2006-01-02"),
		TripTime: b.TripTime,
	}
}

// BookingConfirmed emails the commuter a booking snapshot after a successful
// create or modify.
func (m *Mailer) BookingConfirmed(b *booking_models.Booking) {
	if err := sendEmail(b.UserEmail, "Your bus booking is confirmed", bookingConfirmedTemplate, emailData(b)); err != nil {
		logger.ErrorLogger.Errorf("Failed to send confirmation email for booking %s: %v", b.ID, err)
	}
}

// BookingCancelled emails the commuter after a cancellation.
func (m *Mailer) BookingCancelled(b *booking_models.Booking) {
	if err := sendEmail(b.UserEmail, "Your bus booking was cancelled", bookingCancelledTemplate, emailData(b)); err != nil {
		logger.ErrorLogger.Errorf("Failed to send cancellation email for booking %s: %v", b.ID, err)
	}
}

func sendEmail(toEmail, subject, templatePath string, data interface{}) error {
	if toEmail == "" {
		return fmt.Errorf("no recipient address")
	}
	if emailTemplates == nil {
		return fmt.Errorf("email templates not initialized")
	}

	var body bytes.Buffer
	name := templatePath[len("templates/email/"):]
	if err := emailTemplates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("failed to execute email template %s: %w", name, err)
	}

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", os.Getenv("FROM_EMAIL"))
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body.String())

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %w", err)
	}

	smtpHost := os.Getenv("SMTP_HOST")
	dialer := gomail.NewDialer(smtpHost, port, os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"))
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         smtpHost,
	}

	if err := dialer.DialAndSend(mailer); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoLogger.Infof("Sent %q email to %s", subject, toEmail)
	return nil
}
