package service

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/templui/docclinic/internal/model"
)

type emailMessage struct {
	Subject string
	HTML    string
	Text    string
}

type appointmentEmailData struct {
	*model.Appointment
	HealthConcern   string
	Symptoms        string
	PreferredDoctor string
	ConfirmURL      string
	RejectURL       string
	AppName         string
	ClinicName      string
	DoctorName      string
	Confirmed       bool
}

const emailLayout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #6c5ce7; color: #fff; padding: 24px; border-radius: 10px 10px 0 0; text-align: center; }
.content { background: #f8f9fa; padding: 24px; border-radius: 0 0 10px 10px; }
.row { padding: 8px 0; border-bottom: 1px solid #e9ecef; }
.label { font-weight: bold; color: #6c5ce7; }
.btn { display: inline-block; padding: 12px 28px; margin: 8px; border-radius: 6px; color: #fff; text-decoration: none; font-weight: bold; }
.confirm { background: #00b894; }
.reject { background: #d63031; }
.footer { text-align: center; margin-top: 24px; color: #888; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
{{template "body" .}}
<div class="footer"><p>{{.DoctorName}} - {{.ClinicName}}</p></div>
</div>
</body>
</html>{{end}}`

const appointmentDetailsPartial = `{{define "details"}}
<div class="row"><span class="label">Date:</span> {{.Date}}</div>
<div class="row"><span class="label">Time:</span> {{.Time}}</div>
<div class="row"><span class="label">Preferred Doctor:</span> {{.PreferredDoctor}}</div>
<div class="row"><span class="label">Health Concern:</span> {{.HealthConcern}}</div>
{{end}}`

const appointmentNotificationHTML = `{{define "body"}}
<div class="header"><h1>New Appointment Request</h1></div>
<div class="content">
<h3>Patient</h3>
<div class="row"><span class="label">Name:</span> {{.PatientName}}</div>
<div class="row"><span class="label">Email:</span> <a href="mailto:{{.PatientEmail}}">{{.PatientEmail}}</a></div>
<div class="row"><span class="label">Phone:</span> <a href="tel:{{.PatientPhone}}">{{.PatientPhone}}</a></div>
<h3>Appointment</h3>
{{template "details" .}}
<div class="row"><span class="label">Symptoms:</span> {{.Symptoms}}</div>
<p style="text-align: center;">
<a class="btn confirm" href="{{.ConfirmURL}}">Confirm Appointment</a>
<a class="btn reject" href="{{.RejectURL}}">Reject Appointment</a>
</p>
<p>Clicking a button updates the appointment status and notifies the patient by email.</p>
</div>
{{end}}`

const patientConfirmationHTML = `{{define "body"}}
<div class="header"><h1>Appointment Request Received</h1></div>
<div class="content">
<p>Dear {{.PatientName}},</p>
<p>Thank you for booking with {{.DoctorName}}. We have received your request and will confirm it shortly.</p>
{{template "details" .}}
<p>You will receive another email once the clinic has reviewed your request.</p>
</div>
{{end}}`

const statusUpdateHTML = `{{define "body"}}
{{if .Confirmed}}
<div class="header" style="background: #00b894;"><h1>Appointment Confirmed</h1></div>
<div class="content">
<p>Dear {{.PatientName}},</p>
<p>Your appointment with {{.DoctorName}} has been confirmed.</p>
{{template "details" .}}
<p>Please arrive 10 minutes early and bring any previous medical records.</p>
</div>
{{else}}
<div class="header" style="background: #d63031;"><h1>Appointment Update</h1></div>
<div class="content">
<p>Dear {{.PatientName}},</p>
<p>Unfortunately we are unable to accommodate your appointment request for {{.Date}} at {{.Time}}.</p>
<p>Please book another slot or contact the clinic directly.</p>
</div>
{{end}}
{{end}}`

var (
	appointmentNotificationTmpl = mustEmailTemplate("appointment_notification", appointmentNotificationHTML)
	patientConfirmationTmpl     = mustEmailTemplate("patient_confirmation", patientConfirmationHTML)
	statusUpdateTmpl            = mustEmailTemplate("status_update", statusUpdateHTML)
)

func mustEmailTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Parse(emailLayout + appointmentDetailsPartial + body))
}

func renderEmailHTML(tmpl *template.Template, data appointmentEmailData) (string, error) {
	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func appointmentNotificationEmail(data appointmentEmailData) (*emailMessage, error) {
	html, err := renderEmailHTML(appointmentNotificationTmpl, data)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("New Appointment: %s - %s at %s", data.PatientName, data.Date, data.Time)
	text := fmt.Sprintf(`New appointment request

Patient: %s
Email: %s
Phone: %s

Date: %s
Time: %s
Preferred Doctor: %s
Health Concern: %s
Symptoms: %s

Confirm: %s
Reject: %s`,
		data.PatientName, data.PatientEmail, data.PatientPhone,
		data.Date, data.Time, data.PreferredDoctor, data.HealthConcern, data.Symptoms,
		data.ConfirmURL, data.RejectURL)

	return &emailMessage{Subject: subject, HTML: html, Text: text}, nil
}

func patientConfirmationEmail(data appointmentEmailData) (*emailMessage, error) {
	html, err := renderEmailHTML(patientConfirmationTmpl, data)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Appointment Request Received - %s", data.Date)
	text := fmt.Sprintf(`Dear %s,

Thank you for booking with %s. We have received your request and will confirm it shortly.

Date: %s
Time: %s
Preferred Doctor: %s
Health Concern: %s

Best,
%s - %s`,
		data.PatientName, data.DoctorName,
		data.Date, data.Time, data.PreferredDoctor, data.HealthConcern,
		data.DoctorName, data.ClinicName)

	return &emailMessage{Subject: subject, HTML: html, Text: text}, nil
}

func statusUpdateEmail(data appointmentEmailData) (*emailMessage, error) {
	html, err := renderEmailHTML(statusUpdateTmpl, data)
	if err != nil {
		return nil, err
	}

	if data.Confirmed {
		subject := fmt.Sprintf("Appointment Confirmed - %s at %s", data.Date, data.Time)
		text := fmt.Sprintf(`Dear %s,

Your appointment with %s has been confirmed.

Date: %s
Time: %s

Please arrive 10 minutes early.

Best,
%s - %s`,
			data.PatientName, data.DoctorName, data.Date, data.Time,
			data.DoctorName, data.ClinicName)
		return &emailMessage{Subject: subject, HTML: html, Text: text}, nil
	}

	subject := fmt.Sprintf("Appointment Update - %s", data.Date)
	text := fmt.Sprintf(`Dear %s,

Unfortunately we are unable to accommodate your appointment request for %s at %s.
Please book another slot or contact the clinic directly.

Best,
%s - %s`,
		data.PatientName, data.Date, data.Time,
		data.DoctorName, data.ClinicName)
	return &emailMessage{Subject: subject, HTML: html, Text: text}, nil
}
