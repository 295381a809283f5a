package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/templui/docclinic/internal/model"
)

var (
	ErrInvalidAppointment = errors.New("invalid appointment")
	ErrInvalidStatus      = errors.New("status must be confirmed or rejected")
)

// EmailService sends appointment lifecycle emails. Failed sends are returned
// to the caller and never retried.
type EmailService struct {
	client      *resend.Client
	fromAddress string
	clinicEmail string
	appName     string
	clinicName  string
	doctorName  string
	appURL      string
	isDev       bool
}

func NewEmailService(apiKey, fromAddress, clinicEmail, appName, clinicName, doctorName, appURL string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:      client,
		fromAddress: fromAddress,
		clinicEmail: clinicEmail,
		appName:     appName,
		clinicName:  clinicName,
		doctorName:  doctorName,
		appURL:      strings.TrimSuffix(appURL, "/"),
		isDev:       isDev,
	}
}

// ActionURLs returns the confirm and reject links for an appointment.
func (s *EmailService) ActionURLs(confirmationToken string) (string, string) {
	token := url.PathEscape(confirmationToken)
	confirmURL := fmt.Sprintf("%s/api/appointments/confirm/%s", s.appURL, token)
	rejectURL := fmt.Sprintf("%s/api/appointments/reject/%s", s.appURL, token)
	return confirmURL, rejectURL
}

func (s *EmailService) templateData(appt *model.Appointment) appointmentEmailData {
	data := appointmentEmailData{
		Appointment:     appt,
		HealthConcern:   orDefault(appt.HealthConcern, "Not specified"),
		Symptoms:        orDefault(appt.Symptoms, "Not provided"),
		PreferredDoctor: orDefault(appt.PreferredDoctor, s.doctorName),
		AppName:         s.appName,
		ClinicName:      s.clinicName,
		DoctorName:      s.doctorName,
	}
	if appt.ConfirmationToken != "" {
		data.ConfirmURL, data.RejectURL = s.ActionURLs(appt.ConfirmationToken)
	}
	return data
}

// SendAppointmentNotification tells the clinic about a new booking, with
// confirm/reject links.
func (s *EmailService) SendAppointmentNotification(ctx context.Context, appt *model.Appointment) (string, error) {
	if appt.ConfirmationToken == "" {
		return "", fmt.Errorf("%w: confirmation token is required", ErrInvalidAppointment)
	}

	msg, err := appointmentNotificationEmail(s.templateData(appt))
	if err != nil {
		return "", err
	}

	from := mail.Address{Name: s.appName + " Appointments", Address: s.fromAddress}
	return s.send(ctx, "appointment_notification", from.String(), s.clinicEmail, msg)
}

// SendPatientConfirmation acknowledges a booking request to the patient.
func (s *EmailService) SendPatientConfirmation(ctx context.Context, appt *model.Appointment) (string, error) {
	if appt.PatientEmail == "" {
		return "", fmt.Errorf("%w: patient email is required", ErrInvalidAppointment)
	}

	msg, err := patientConfirmationEmail(s.templateData(appt))
	if err != nil {
		return "", err
	}

	return s.send(ctx, "patient_confirmation", s.patientFrom(), appt.PatientEmail, msg)
}

// SendStatusUpdate tells the patient the clinic confirmed or rejected the booking.
func (s *EmailService) SendStatusUpdate(ctx context.Context, appt *model.Appointment, status model.AppointmentStatus) (string, error) {
	if !status.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidStatus, status)
	}
	if appt.PatientEmail == "" {
		return "", fmt.Errorf("%w: patient email is required", ErrInvalidAppointment)
	}

	data := s.templateData(appt)
	data.Confirmed = status == model.AppointmentStatusConfirmed

	msg, err := statusUpdateEmail(data)
	if err != nil {
		return "", err
	}

	return s.send(ctx, "status_update_"+string(status), s.patientFrom(), appt.PatientEmail, msg)
}

func (s *EmailService) patientFrom() string {
	from := mail.Address{Name: s.doctorName + " - " + s.clinicName, Address: s.fromAddress}
	return from.String()
}

func (s *EmailService) send(ctx context.Context, kind, from, to string, msg *emailMessage) (string, error) {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", msg.Subject)
		return "", nil
	}

	if s.client == nil {
		return "", fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("failed to send email", "type", kind, "to", to, "error", err)
		return "", fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to, "message_id", sent.Id)
	return sent.Id, nil
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
