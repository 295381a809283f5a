package model

// Appointment carries what the notification emails need about a booking.
// Booking persistence lives with the appointment routes, not here.
type Appointment struct {
	ID                string
	ConfirmationToken string
	PatientName       string
	PatientEmail      string
	PatientPhone      string
	Date              string // As entered by the patient, e.g. "2026-10-20"
	Time              string
	HealthConcern     string
	Symptoms          string
	PreferredDoctor   string
}

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
)

func (s AppointmentStatus) Valid() bool {
	return s == AppointmentStatusConfirmed || s == AppointmentStatusRejected
}
