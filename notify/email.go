package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Govind-619/WalletDesk/models"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender is the part of *gomail.Dialer the notifier uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// UserDirectory resolves a user's email address.
type UserDirectory interface {
	EmailOf(ctx context.Context, userID uint) (string, error)
}

// GormUserDirectory reads addresses from the users table.
type GormUserDirectory struct {
	DB *gorm.DB
}

func (d GormUserDirectory) EmailOf(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := d.DB.WithContext(ctx).Select("email").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("no email on file for user %d", userID)
		}
		return "", err
	}
	return user.Email, nil
}

// EmailNotifier mails the request owner about the outcome.
type EmailNotifier struct {
	from   string
	sender Sender
	users  UserDirectory
}

// NewEmailNotifier builds a notifier that sends through the configured SMTP server.
func NewEmailNotifier(cfg EmailConfig, users UserDirectory) *EmailNotifier {
	return &EmailNotifier{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		users:  users,
	}
}

// WithSender replaces the SMTP dialer.
func (n *EmailNotifier) WithSender(s Sender) *EmailNotifier {
	n.sender = s
	return n
}

func (n *EmailNotifier) Notify(ctx context.Context, evt Event) error {
	to, err := n.users.EmailOf(ctx, evt.UserID)
	if err != nil {
		return fmt.Errorf("email notifier: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", emailSubject(evt))
	m.SetBody("text/html", emailBody(evt))

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

func emailSubject(evt Event) string {
	switch evt.Outcome {
	case models.OutcomeApproved:
		return "Your wallet top-up was approved"
	case models.OutcomeRejected:
		return "Your wallet top-up was rejected"
	case models.OutcomeExpired:
		return "Your wallet top-up has expired"
	}
	return "Your wallet top-up was received"
}

func emailBody(evt Event) string {
	body := fmt.Sprintf(`
		<h2>Wallet top-up #%d</h2>
		<p>%s.</p>
		<p>Amount: <strong>%s</strong></p>
	`, evt.RequestID, evt.Summary(), evt.Amount)
	if evt.Notes != "" && evt.Outcome != models.OutcomeRejected {
		body += fmt.Sprintf("<p>Notes: %s</p>", evt.Notes)
	}
	return body
}
