package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"fuelwatch/internal/alerts"
	"fuelwatch/internal/analysis"
	"fuelwatch/internal/db"
	"fuelwatch/internal/ingest"
	"fuelwatch/internal/logging"
	"fuelwatch/internal/models"
	"fuelwatch/internal/notification"
)

// Consumer reads refuel batches from Kafka and runs each one through the
// full pipeline: normalize, analyze, evaluate rules, persist, queue
// notifications.
type Consumer struct {
	reader *kafkago.Reader
	db     *db.DB
	svc    *notification.Service
	engine *alerts.Engine
	logger *logging.Logger
	cancel context.CancelFunc
}

func NewConsumer(brokers []string, topic, groupID string, database *db.DB, svc *notification.Service) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	logger := svc.Logger()
	return &Consumer{
		reader: reader,
		db:     database,
		svc:    svc,
		engine: alerts.NewEngine(logger),
		logger: logger,
	}
}

// Start consumes messages until Close is called.
func (c *Consumer) Start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var raw models.RawTable
			if err := json.Unmarshal(msg.Value, &raw); err != nil {
				c.logger.Errorf("Unmarshal batch failed: %v", err)
				continue
			}
			if raw.BatchID == "" || len(raw.Columns) == 0 {
				c.logger.Errorf("Invalid batch message: missing batch_id or columns")
				continue
			}
			c.handleBatch(ctx, raw)
		}
	}()
}

// handleBatch runs one batch end to end. Failures are logged and the
// batch is skipped; the consumer keeps reading.
func (c *Consumer) handleBatch(ctx context.Context, raw models.RawTable) {
	ds, err := ingest.Normalize(raw)
	if err != nil {
		c.logger.Errorf("Batch %s rejected: %v", raw.BatchID, err)
		return
	}
	if ds.Len() == 0 {
		c.logger.Warnf("Batch %s has no usable rows after normalization", raw.BatchID)
		return
	}
	c.logger.Infof("Batch %s: %d usable row(s), %d vehicle(s)", raw.BatchID, ds.Len(), len(ds.Vehicles()))

	result, err := analysis.Analyze(ds, raw.BatchID, analysis.DefaultForestConfig())
	if err != nil {
		c.logger.Errorf("Batch %s analysis failed: %v", raw.BatchID, err)
		return
	}
	if !result.EnsembleRan {
		c.logger.Warnf("Batch %s: multivariate detection skipped (%v), statistical detectors only", raw.BatchID, result.EnsembleErr)
	}

	for _, fc := range analysis.ForecastConsumption(ds) {
		if fc.Slope > 0 && fc.R2 >= 0.5 {
			c.logger.Infof("Batch %s: vehicle %s consumption trending up %.3f/day, next refuel projected at %.1f (r2 %.2f)",
				raw.BatchID, fc.Vehicle, fc.Slope, fc.NextVolume, fc.R2)
		}
	}

	rules, err := c.db.GetActiveRules(ctx)
	if err != nil {
		c.logger.Errorf("Batch %s: loading rules failed: %v", raw.BatchID, err)
		return
	}
	events := c.engine.Evaluate(ds, result.Verdicts, rules, raw.BatchID, time.Now())

	run := db.AnalysisRun{
		BatchID:    raw.BatchID,
		Summary:    result.Summary,
		ModelBlob:  result.ModelBlob,
		EventCount: len(events),
		CreatedAt:  time.Now(),
	}
	if err := c.db.CreateAnalysisRun(ctx, run); err != nil {
		c.logger.Errorf("Batch %s: persisting run failed: %v", raw.BatchID, err)
		return
	}

	for _, event := range events {
		if err := c.db.CreateAlertEvent(ctx, event); err != nil {
			c.logger.Errorf("Batch %s: persisting event %s failed: %v", raw.BatchID, event.ID, err)
			continue
		}
		c.svc.QueueEvent(event)
	}
	c.logger.Infof("Batch %s processed: %d anomalies, %d alert event(s)",
		raw.BatchID, result.Summary.Anomalies, len(events))
}

func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
