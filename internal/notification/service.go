package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fuelwatch/internal/config"
	"fuelwatch/internal/db"
	"fuelwatch/internal/logging"
	"fuelwatch/internal/models"
	"fuelwatch/internal/providers"
)

// Service dispatches alert events to contact points through routing
// policies, using a bounded queue and a worker pool.
type Service struct {
	db            *db.DB
	logger        *logging.Logger
	config        config.Config
	events        chan models.AlertEvent
	ctx           context.Context
	cancel        context.CancelFunc
	wg            *sync.WaitGroup
	providerFuncs map[string]func(context.Context, models.Notification, models.ContactPoint) error
}

func New(database *db.DB, logger *logging.Logger, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		db:     database,
		logger: logger,
		config: cfg,
		events: make(chan models.AlertEvent, cfg.Notification.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	svc.providerFuncs = map[string]func(context.Context, models.Notification, models.ContactPoint) error{
		"email": func(ctx context.Context, notif models.Notification, cp models.ContactPoint) error {
			return providers.SendEmail(ctx, notif, cp, svc.config)
		},
		"telegram": func(ctx context.Context, notif models.Notification, cp models.ContactPoint) error {
			return providers.SendTelegram(ctx, notif, cp, svc.logger)
		},
	}
	return svc
}

// Logger exposes the Service's logger to the Kafka consumer or caller.
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	providers.InitTelegramLimiter(s.config.RateLimit.TelegramPerSecond)
	for i := 0; i < s.config.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers; pending queue entries are dropped.
func (s *Service) Stop() {
	s.cancel()
}

// QueueEvent enqueues an alert event for dispatch.
func (s *Service) QueueEvent(event models.AlertEvent) {
	select {
	case s.events <- event:
		s.logger.Infof("Queued alert event %s (rule %s, vehicle %s)", event.ID, event.RuleType, event.Vehicle)
	default:
		s.logger.Errorf("Queue full, dropping alert event %s", event.ID)
	}
}

// worker processes events until context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case event := <-s.events:
			s.handleEvent(event)
		}
	}
}

// handleEvent matches routing policies against the event severity,
// persists one notification per match, and dispatches via the contact
// point's provider.
func (s *Service) handleEvent(event models.AlertEvent) {
	policies, err := s.db.GetActivePolicies(s.ctx)
	if err != nil {
		s.logger.Errorf("Failed to load routing policies: %v", err)
		return
	}

	for _, pol := range policies {
		if !evaluateCondition(pol.Condition, event.Severity.Rank(), pol.Severity.Rank()) {
			s.logger.Debugf("Policy %s skipped (severity %s does not satisfy %s %s)",
				pol.ID, event.Severity, pol.Condition, pol.Severity)
			continue
		}
		if pol.ContactPoint == nil {
			s.logger.Warnf("Policy %s has no active contact point, skipping", pol.ID)
			continue
		}
		provider, ok := s.providerFuncs[pol.ContactPoint.Type]
		if !ok {
			s.logger.Warnf("Policy %s routes to unsupported channel %q, skipping", pol.ID, pol.ContactPoint.Type)
			continue
		}

		notif := models.Notification{
			ID:       uuid.New(),
			EventID:  event.ID,
			PolicyID: pol.ID,
			Channel:  pol.ContactPoint.Type,
			Subject:  fmt.Sprintf("[%s] fuel alert: %s", event.Severity, event.RuleType),
			Body: fmt.Sprintf("%s\nVehicle: %s\nObserved: %.2f\nThreshold: %.2f\nBatch: %s\nDetected: %s",
				event.Message, event.Vehicle, event.Observed, event.Threshold,
				event.BatchID, event.DetectedAt.Format(time.RFC3339)),
			Status:    models.NotificationPending,
			CreatedAt: time.Now(),
		}
		if err := s.db.CreateNotification(s.ctx, notif); err != nil {
			s.logger.Errorf("CreateNotification failed: %v", err)
			continue
		}

		err := provider(s.ctx, notif, *pol.ContactPoint)

		final := models.NotificationSent
		lastError := ""
		if err != nil {
			final = models.NotificationFailed
			lastError = err.Error()
			s.logger.Errorf("Dispatch error via %s: %v", pol.ContactPoint.Type, err)
		}
		if err := s.db.UpdateNotificationStatus(s.ctx, notif.ID, final, lastError); err != nil {
			s.logger.Errorf("UpdateNotificationStatus failed: %v", err)
		}

		s.logger.Infof("Policy %s dispatched %s via %s", pol.ID, final, pol.ContactPoint.Type)
	}
}

// evaluateCondition checks whether the event severity rank satisfies the
// policy condition against the policy severity rank.
func evaluateCondition(cond string, eventRank, policyRank int) bool {
	switch cond {
	case "EQ":
		return eventRank == policyRank
	case "NEQ":
		return eventRank != policyRank
	case "GT":
		return eventRank > policyRank
	case "GTE":
		return eventRank >= policyRank
	case "LT":
		return eventRank < policyRank
	case "LTE":
		return eventRank <= policyRank
	default:
		return false
	}
}
