// internal/app/delivery_service.go
package app

import (
	"context"
	"fmt"
	"sync"

	domainTelegram "daily_report_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the delivery pipeline
var ErrPublishInFlight = fmt.Errorf("a delivery for this report is already in flight")

// FileExistenceChecker is the injected capability used to filter attachment
// paths before sending. The indirection keeps the pipeline testable without
// a real filesystem.
type FileExistenceChecker interface {
	Exists(path string) bool
}

// AttachmentResult records the outcome of one attempted attachment send.
type AttachmentResult struct {
	Path string
	Sent bool
	Err  error
}

// DeliveryResult aggregates one Publish run: the text send, every attempted
// attachment send, and the paths skipped because the file no longer exists.
type DeliveryResult struct {
	Delivered   bool // true iff text and every attempted attachment succeeded
	TextSent    bool
	Attachments []AttachmentResult
	Skipped     []string
}

// DeliveryPipeline sends a report as one text message followed by its voice
// attachments, strictly in that order. The endpoint is a single
// conversational channel, so sends within one Publish are sequential; a
// failed send aborts the remainder. The pipeline knows nothing about report
// entities beyond the id used for the in-flight guard — marking the report
// published is the caller's job.
type DeliveryPipeline struct {
	client      domainTelegram.Client
	files       FileExistenceChecker
	recipientID int64
	logger      *logrus.Entry

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewDeliveryPipeline(
	client domainTelegram.Client,
	files FileExistenceChecker,
	recipientID int64,
	logger *logrus.Entry,
) *DeliveryPipeline {
	return &DeliveryPipeline{
		client:      client,
		files:       files,
		recipientID: recipientID,
		logger:      logger,
		inFlight:    make(map[int64]struct{}),
	}
}

// Publish delivers the text followed by the attachments that still exist on
// disk. Missing paths are dropped silently, not failed: a stale reference to
// a deleted recording must not block delivery of the rest. At most one
// Publish per report may be outstanding; a concurrent second call is
// rejected with ErrPublishInFlight. There is no mid-flight cancellation and
// no retry here; retry policy belongs to the injected send capability.
func (p *DeliveryPipeline) Publish(ctx context.Context, reportID int64, text string, attachmentPaths []string) (DeliveryResult, error) {
	p.mu.Lock()
	if _, busy := p.inFlight[reportID]; busy {
		p.mu.Unlock()
		return DeliveryResult{}, ErrPublishInFlight
	}
	p.inFlight[reportID] = struct{}{}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, reportID)
		p.mu.Unlock()
	}()

	logger := p.logger.WithField("report_id", reportID)
	result := DeliveryResult{}

	surviving := make([]string, 0, len(attachmentPaths))
	for _, path := range attachmentPaths {
		if p.files.Exists(path) {
			surviving = append(surviving, path)
		} else {
			logger.WithField("path", path).Warn("Attachment no longer exists, skipping")
			result.Skipped = append(result.Skipped, path)
		}
	}

	if err := p.client.SendMessage(p.recipientID, text, nil); err != nil {
		logger.WithError(err).Error("Text send failed, aborting delivery")
		return result, nil
	}
	result.TextSent = true

	for _, path := range surviving {
		err := p.client.SendVoice(p.recipientID, path)
		result.Attachments = append(result.Attachments, AttachmentResult{
			Path: path,
			Sent: err == nil,
			Err:  err,
		})
		if err != nil {
			logger.WithError(err).WithField("path", path).Error("Attachment send failed, aborting delivery")
			return result, nil
		}
	}

	result.Delivered = true
	logger.WithFields(logrus.Fields{
		"attachments_sent":    len(result.Attachments),
		"attachments_skipped": len(result.Skipped),
	}).Info("Report delivered")
	return result, nil
}
