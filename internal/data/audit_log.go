package data

import (
	"context"
	"encoding/json"
	"time"

	"PayLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// RouteAuditLog is the GORM model for the route_audit_logs table.
type RouteAuditLog struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	Provider  string    `gorm:"column:provider;type:varchar(100);index"`
	EventType string    `gorm:"column:event_type;type:varchar(50);not null"`
	Details   string    `gorm:"column:details;type:json"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (RouteAuditLog) TableName() string {
	return "route_audit_logs"
}

// AuditLogger persists resilience events asynchronously. It implements the
// biz event sink contract; events that carry no audit value are dropped at
// the door. A nil DB disables persistence without touching callers.
type AuditLogger struct {
	db      *gorm.DB
	logChan chan *RouteAuditLog
	done    chan struct{}
	logger  *log.Helper
}

// NewAuditLogger creates an audit logger with an async channel writer. The
// returned cleanup drains and stops the writer for clean shutdown.
func NewAuditLogger(db *gorm.DB, logger log.Logger) (*AuditLogger, func()) {
	al := &AuditLogger{
		db:      db,
		logChan: make(chan *RouteAuditLog, 1000), // buffered so emitters never block
		done:    make(chan struct{}),
		logger:  log.NewHelper(logger),
	}

	go al.start()

	cleanup := func() {
		close(al.logChan)
		<-al.done
	}

	return al, cleanup
}

// start processes audit records from the channel until it is closed.
func (a *AuditLogger) start() {
	defer close(a.done)

	for record := range a.logChan {
		if a.db == nil {
			continue
		}
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(record).Error; err != nil {
			a.logger.Errorw("failed to write audit log",
				"provider", record.Provider,
				"event_type", record.EventType,
				"error", err)
		} else {
			a.logger.Debugw("audit log written",
				"provider", record.Provider,
				"event_type", record.EventType)
		}
	}
}

// Publish implements the event sink contract for resilience events.
func (a *AuditLogger) Publish(event model.Event) {
	eventType, ok := auditType(event.Type)
	if !ok {
		return
	}

	details := map[string]interface{}{}
	if event.From != "" || event.To != "" {
		details["from"] = string(event.From)
		details["to"] = string(event.To)
	}
	if event.Key != "" {
		details["key"] = event.Key
	}
	for k, v := range event.Details {
		details[k] = v
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("failed to marshal audit log details", "error", err)
		return
	}

	record := &RouteAuditLog{
		Provider:  event.Provider,
		EventType: eventType.String(),
		Details:   string(detailsJSON),
	}

	// Non-blocking send; dropping an audit record must never stall routing
	select {
	case a.logChan <- record:
	default:
		a.logger.Warnw("audit log channel full, dropping record",
			"provider", record.Provider,
			"event_type", record.EventType)
	}
}

// auditType maps resilience events to persisted audit types. Events not
// listed here are log-only.
func auditType(t model.EventType) (AuditEventType, bool) {
	switch t {
	case model.EventStateChange:
		return AuditEventBreakerStateChanged, true
	case model.EventTrip:
		return AuditEventBreakerTripped, true
	case model.EventManualTrip:
		return AuditEventManualTrip, true
	case model.EventManualReset:
		return AuditEventManualReset, true
	case model.EventProviderUnhealthy:
		return AuditEventProviderUnhealthy, true
	case model.EventRouted:
		return AuditEventPaymentRouted, true
	default:
		return "", false
	}
}
