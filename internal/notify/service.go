package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
	"github.com/vibex365/luna-heart-guide-sub005/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3

	KindPurchaseCredited = "purchase_credited"
	KindLowBalance       = "low_balance"
)

type Job struct {
	Kind    string    `json:"kind"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues notification emails through Redis and drains them in
// a background worker. Queuing never blocks a purchase or a session.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(rdb *redis.Client, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass string) *Service {
	return &Service{
		redis:    rdb,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) enqueue(ctx context.Context, job Job) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification to %s: %v", job.Kind, job.To, err)
		return err
	}

	metrics.RecordNotificationQueued(job.Kind)
	logger.Infof("Notification queued: %s to %s", job.Kind, job.To)
	return nil
}

// Start drains the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send %s notification to %s: %v", job.Kind, job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying notification to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	logger.Infof("Notification sent to %s: %s", job.To, job.Subject)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, cause error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": cause.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification to %s moved to failed queue after %d attempts", job.To, job.Tries)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) SendPurchaseCredited(ctx context.Context, email, name string, minutes, newBalance int) error {
	subject := "Your Luna minutes have arrived"
	body := fmt.Sprintf(`Hi %s,

%d minutes were just added to your account. Your balance is now %d minutes.

Luna is ready whenever you are.

- The Luna Team`, name, minutes, newBalance)

	return s.enqueue(ctx, Job{
		Kind:    KindPurchaseCredited,
		To:      email,
		Name:    name,
		Subject: subject,
		Body:    body,
	})
}

func (s *Service) SendLowBalance(ctx context.Context, email, name string, minutesLeft int) error {
	subject := "You're running low on Luna minutes"
	body := fmt.Sprintf(`Hi %s,

You have %d minutes left. Top up so your next conversation isn't cut short.

- The Luna Team`, name, minutesLeft)

	return s.enqueue(ctx, Job{
		Kind:    KindLowBalance,
		To:      email,
		Name:    name,
		Subject: subject,
		Body:    body,
	})
}
