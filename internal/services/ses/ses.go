// Package ses provides assignment email notifications via AWS SES.
package ses

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "bel-energy-engine/internal/config"
	"bel-energy-engine/internal/models"
	"bel-energy-engine/internal/utils"
)

// Service handles SES email operations.
type Service struct {
	client     *ses.Client
	fromEmail  string
	adminEmail string
}

// EmailParams represents parameters for sending an email.
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmailResult contains the result of sending an email.
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES notification service.
func NewService(ctx context.Context, cfg *appConfig.Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:     ses.NewFromConfig(awsCfg),
		fromEmail:  cfg.SESSenderEmail,
		adminEmail: cfg.AdminEmail,
	}, nil
}

// SendEmail sends a basic email.
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	utils.GetLogger().Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", *result.MessageId),
	)

	return &SendEmailResult{
		MessageID: *result.MessageId,
		SentAt:    time.Now(),
	}, nil
}

// NotifyProjectAssigned emails the ally that a project was assigned to them.
func (s *Service) NotifyProjectAssigned(ctx context.Context, projectID string, ally *models.Ally, score float64) error {
	htmlBody, err := renderAssignedHTML(assignedParams{
		AllyName:  ally.FullName(),
		ProjectID: projectID,
		Score:     score,
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	textBody := fmt.Sprintf(
		"Hi %s,\n\nA new project (%s) has been assigned to you with a match score of %.1f.\n"+
			"Log in to your ally dashboard to review the details.\n\nBel Energy Team\n",
		ally.FullName(), projectID, score,
	)

	_, err = s.SendEmail(ctx, EmailParams{
		To:       ally.Email,
		Subject:  fmt.Sprintf("New project assigned: %s", projectID),
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	return err
}

// NotifyAssignmentFailed emails the operations admin that automatic
// assignment could not find a suitable ally for a project.
func (s *Service) NotifyAssignmentFailed(ctx context.Context, projectID string) error {
	if s.adminEmail == "" {
		return nil
	}

	textBody := fmt.Sprintf(
		"Automatic assignment found no suitable ally for project %s.\n"+
			"The project needs manual assignment from the admin dashboard.\n",
		projectID,
	)

	_, err := s.SendEmail(ctx, EmailParams{
		To:       s.adminEmail,
		Subject:  fmt.Sprintf("Auto-assignment failed for project %s", projectID),
		TextBody: textBody,
	})
	return err
}

type assignedParams struct {
	AllyName  string
	ProjectID string
	Score     float64
}

func renderAssignedHTML(params assignedParams) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #f7971e 0%, #ffd200 100%); color: #333; padding: 30px; border-radius: 10px 10px 0 0; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .score-badge { display: inline-block; background: #28a745; color: white; padding: 5px 12px; border-radius: 20px; font-weight: bold; }
        .footer { text-align: center; margin-top: 30px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>New Project Assigned</h1>
        <p>Hi {{.AllyName}}, a project is waiting for you</p>
    </div>
    <div class="content">
        <p>Project <strong>{{.ProjectID}}</strong> has been assigned to you with a match score of
        <span class="score-badge">{{printf "%.1f" .Score}}</span>.</p>
        <p>Log in to your ally dashboard to review the details and confirm the schedule.</p>
    </div>
    <div class="footer">
        <p>This email was sent by Bel Energy</p>
    </div>
</body>
</html>`

	t, err := template.New("project_assigned").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", err
	}

	return buf.String(), nil
}
