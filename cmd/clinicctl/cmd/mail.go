package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/templui/docclinic/internal/app"
	"github.com/templui/docclinic/internal/model"
	"github.com/templui/docclinic/internal/service"
)

var mailKinds = []string{"notification", "confirmation", "confirmed", "rejected"}

func MailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Send appointment emails by hand",
	}

	cmd.AddCommand(mailSendCmd())
	return cmd
}

func mailSendCmd() *cobra.Command {
	appt := &model.Appointment{}

	cmd := &cobra.Command{
		Use:       "send <notification|confirmation|confirmed|rejected>",
		Short:     "Send one appointment email (logged only when APP_ENV=development)",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: mailKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if appt.ConfirmationToken == "" {
				appt.ConfirmationToken = uuid.New().String()
			}
			if appt.ID == "" {
				appt.ID = uuid.New().String()
			}

			id, err := sendMail(cmd, app.NewEmailService(cfg), args[0], appt)
			if err != nil {
				return err
			}
			if id == "" {
				id = "(not sent, development mode)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s email: %s\n", args[0], id)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&appt.PatientName, "patient", "Test Patient", "patient name")
	f.StringVar(&appt.PatientEmail, "to", "", "patient email (ignored for notification, which goes to CLINIC_EMAIL)")
	f.StringVar(&appt.PatientPhone, "phone", "", "patient phone")
	f.StringVar(&appt.Date, "date", "", "appointment date (required)")
	f.StringVar(&appt.Time, "time", "", "appointment time (required)")
	f.StringVar(&appt.HealthConcern, "concern", "", "health concern")
	f.StringVar(&appt.Symptoms, "symptoms", "", "symptoms")
	f.StringVar(&appt.PreferredDoctor, "doctor", "", "preferred doctor")
	f.StringVar(&appt.ConfirmationToken, "token", "", "confirmation token (random when empty)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
	return cmd
}

func sendMail(cmd *cobra.Command, emails *service.EmailService, kind string, appt *model.Appointment) (string, error) {
	ctx := cmd.Context()
	switch kind {
	case "notification":
		return emails.SendAppointmentNotification(ctx, appt)
	case "confirmation":
		return emails.SendPatientConfirmation(ctx, appt)
	case "confirmed":
		return emails.SendStatusUpdate(ctx, appt, model.AppointmentStatusConfirmed)
	case "rejected":
		return emails.SendStatusUpdate(ctx, appt, model.AppointmentStatusRejected)
	default:
		return "", fmt.Errorf("unknown mail kind %q", kind)
	}
}
