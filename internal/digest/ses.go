package digest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/region-insights/internal/config"
	"github.com/ignite/region-insights/internal/pkg/logger"
	"github.com/ignite/region-insights/internal/service/report"
)

// SESAPI is the part of the SES v2 client the sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender emails digests to the management list through AWS SES.
type SESSender struct {
	client        SESAPI
	renderer      *Renderer
	from          string
	recipients    []string
	sendWhenQuiet bool
}

// NewSESSender creates an SES sender. The AWS client is only initialized
// when static credentials are configured; without one, digests are logged.
func NewSESSender(ctx context.Context, cfg config.DigestConfig, renderer *Renderer) *SESSender {
	sender := &SESSender{
		renderer:      renderer,
		from:          cfg.From,
		recipients:    cfg.Recipients,
		sendWhenQuiet: cfg.SendWhenQuiet,
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.SESRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
		if err != nil {
			log.Printf("[Digest] Warning: Failed to initialize AWS config: %v", err)
		} else {
			sender.client = sesv2.NewFromConfig(awsCfg)
		}
	}
	return sender
}

// NewSESSenderWithClient builds a sender around an existing client.
func NewSESSenderWithClient(client SESAPI, renderer *Renderer, from string, recipients []string, sendWhenQuiet bool) *SESSender {
	return &SESSender{
		client:        client,
		renderer:      renderer,
		from:          from,
		recipients:    recipients,
		sendWhenQuiet: sendWhenQuiet,
	}
}

// Notify sends the digest for r. Reports without alerts are skipped unless
// the sender was configured to send them anyway.
func (s *SESSender) Notify(ctx context.Context, r *report.Report) error {
	if r.Quiet() && !s.sendWhenQuiet {
		logger.Debug("digest skipped, no alerts", "report", r.ID)
		return nil
	}

	d, err := s.renderer.Render(r)
	if err != nil {
		return err
	}

	if s.client == nil || len(s.recipients) == 0 || s.from == "" {
		log.Printf("[Digest] would send: %s", d.Subject)
		return nil
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: s.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(d.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(d.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("report_id"), Value: aws.String(r.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("sending digest via SES: %w", err)
	}

	logger.Info("digest sent",
		"report", r.ID,
		"message_id", aws.ToString(out.MessageId),
		"recipients", strings.Join(s.recipients, ","))
	return nil
}
