package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"

	"fuelwatch/internal/config"
	"fuelwatch/internal/models"
)

type emailConfig struct {
	Email string `json:"email"`
}

// SendEmail delivers a notification to the address stored in the contact
// point configuration, using the SMTP account from the service config.
func SendEmail(ctx context.Context, notif models.Notification, cp models.ContactPoint, cfg config.Config) error {
	configBytes, err := json.Marshal(cp.Configuration)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for contact point %s: %w", cp.ID, err)
	}
	var eCfg emailConfig
	if err := json.Unmarshal(configBytes, &eCfg); err != nil {
		return fmt.Errorf("invalid email configuration for contact point %s: %w", cp.ID, err)
	}
	if eCfg.Email == "" {
		return fmt.Errorf("email not set in configuration for contact point %s", cp.ID)
	}

	if cfg.Email.SMTPServer == "" || cfg.Email.SMTPPort == 0 || cfg.Email.Username == "" || cfg.Email.Password == "" {
		return fmt.Errorf("missing email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}

	from := cfg.Email.Username
	if cfg.Email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.Email.FromName, cfg.Email.Username)
	}
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, eCfg.Email, notif.Subject, notif.Body)

	auth := smtp.PlainAuth("", cfg.Email.Username, cfg.Email.Password, cfg.Email.SMTPServer)
	addr := fmt.Sprintf("%s:%d", cfg.Email.SMTPServer, cfg.Email.SMTPPort)

	// smtp.SendMail has no context hook; bail out early if the caller
	// already gave up
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(addr, auth, cfg.Email.Username, []string{eCfg.Email}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", eCfg.Email, err)
	}
	return nil
}
