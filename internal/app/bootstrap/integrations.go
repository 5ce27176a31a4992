package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/klinikai/internal/archive"
	appconfig "github.com/wolfman30/klinikai/internal/config"
	"github.com/wolfman30/klinikai/internal/events"
	"github.com/wolfman30/klinikai/internal/notify"
	"github.com/wolfman30/klinikai/pkg/logging"
)

// BuildPublisher returns the SQS publisher when a queue is configured and
// the logging publisher otherwise.
func BuildPublisher(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) events.Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.EventsQueueURL) == "" || awsCfg == nil {
		logger.Info("events queue not configured; logging booking events")
		return events.NewLogPublisher(logger)
	}
	logger.Info("publishing booking events to SQS", "queue_url", cfg.EventsQueueURL)
	return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.EventsQueueURL)
}

// BuildEmailSender picks the owner notification provider from config.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	senderCfg := notify.SenderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		},
	}
	if cfg.EmailProvider == "ses" && awsCfg != nil {
		senderCfg.SESClient = sesv2.NewFromConfig(*awsCfg)
	}
	return notify.NewSender(senderCfg, logger)
}

// BuildArchive returns the transcript archive, or nil when no bucket is set.
func BuildArchive(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || strings.TrimSpace(cfg.ArchiveBucket) == "" || awsCfg == nil {
		return nil
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		// LocalStack serves buckets by path.
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return archive.NewStore(client, cfg.ArchiveBucket, logger)
}
