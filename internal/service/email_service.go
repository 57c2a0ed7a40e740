package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"famigo/internal/logger"
)

// EmailService sends transactional email via Amazon SES. When no sender
// address is configured the service runs disabled and sends become no-ops.
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        *logger.Logger
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, log *logger.Logger) (*EmailService, error) {
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, log: log}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.WithField("from", fromEmail).Info("email service enabled")

	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		log:        log,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendFamilyInvite mails an invitation code to a prospective family member
func (s *EmailService) SendFamilyInvite(ctx context.Context, toEmail, familyName, inviterName, code string) error {
	if !s.enabled {
		s.log.WithField("to", toEmail).Debug("skipping invite email, service disabled")
		return nil
	}

	joinLink := fmt.Sprintf("%s/families/join/invite/%s", s.appBaseURL, code)
	subject := fmt.Sprintf("You're invited to join %s on Famigo", familyName)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Join %s</h2>
	<p>%s invited you to join their family on Famigo.</p>
	<p>Your invite code is: <strong>%s</strong></p>
	<p><a href="%s">Accept the invitation</a></p>
	<p>This invite is single-use and expires soon.</p>
</body>
</html>`, familyName, inviterName, code, joinLink)
	textBody := fmt.Sprintf("%s invited you to join %s on Famigo.\n\nYour invite code is: %s\n\nAccept here: %s\n",
		inviterName, familyName, code, joinLink)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.WithField("to", toEmail).Info("email sent")
	return nil
}
