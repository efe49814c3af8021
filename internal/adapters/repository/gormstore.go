package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voicemetrics/callbridge/internal/domain/record"
	"github.com/voicemetrics/callbridge/pkg/logger"
	"github.com/voicemetrics/callbridge/pkg/metrics"
)

type callModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Email       string    `gorm:"column:email"`
	ToNumber    string    `gorm:"column:to_number"`
	StartedAt   time.Time `gorm:"column:started_at"`
	EndedAt     time.Time `gorm:"column:ended_at"`
	DurationSec float64   `gorm:"column:duration_sec"`
	Cost        float64   `gorm:"column:cost"`
	Title       string    `gorm:"column:title"`
}

func (callModel) TableName() string { return "calls" }

type orderModel struct {
	OrderNumber   string    `gorm:"column:order_number;primaryKey"`
	Email         string    `gorm:"column:email"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	TotalPrice    float64   `gorm:"column:total_price"`
	DiscountCodes string    `gorm:"column:discount_codes;type:text"`
	CustomerName  string    `gorm:"column:customer_first_name"`
	LineItems     string    `gorm:"column:line_items;type:text"`
	Title         string    `gorm:"column:title"`
	Phone         string    `gorm:"column:phone"`
}

func (orderModel) TableName() string { return "orders" }

type costBasisModel struct {
	ProductTitle string  `gorm:"column:product_title;primaryKey"`
	UnitCost     float64 `gorm:"column:unit_cost"`
}

func (costBasisModel) TableName() string { return "cost_basis" }

type reconciledModel struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PhoneKey       string    `gorm:"column:phone_key;index"`
	Email          string    `gorm:"column:email"`
	CallStartedAt  time.Time `gorm:"column:call_started_at"`
	DurationSec    float64   `gorm:"column:duration_sec"`
	CallCost       float64   `gorm:"column:call_cost"`
	OrderNumber    string    `gorm:"column:order_number"`
	OrderCreatedAt time.Time `gorm:"column:order_created_at"`
	TotalPrice     float64   `gorm:"column:total_price"`
	DiscountCodes  string    `gorm:"column:discount_codes"`
	CustomerName   string    `gorm:"column:customer_first_name"`
	Title          string    `gorm:"column:title"`
	Cost           float64   `gorm:"column:cost"`
}

func (reconciledModel) TableName() string { return "reconciled_records" }

// GormStore implements Store on PostgreSQL via GORM.
type GormStore struct {
	db  *gorm.DB
	log logger.Logger
}

// NewGormStore opens the database and migrates the pipeline tables. The
// cost-basis table is migrated but never written: it is externally
// maintained.
func NewGormStore(ctx context.Context, dsn string, opts ...GormOption) (*GormStore, error) {
	s := &GormStore{
		log: logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.db == nil {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = db
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&callModel{}, &orderModel{}, &costBasisModel{}, &reconciledModel{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return s, nil
}

// GormOption applies a configuration option to the GormStore.
type GormOption func(*GormStore)

// WithDB injects an already-open gorm handle (used by tests and callers that
// manage their own connection pooling).
func WithDB(db *gorm.DB) GormOption {
	return func(s *GormStore) {
		if db != nil {
			s.db = db
		}
	}
}

// UpsertCall inserts or updates a call row keyed by call ID.
func (s *GormStore) UpsertCall(ctx context.Context, c record.Call) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m := callModel(c)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert call %s: %w", c.ID, err)
	}
	return nil
}

// UpsertOrder inserts or updates an order row keyed by order number.
func (s *GormStore) UpsertOrder(ctx context.Context, o record.Order) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	m := orderModel(o)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_number"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", o.OrderNumber, err)
	}
	return nil
}

// Calls returns the full persisted call snapshot.
func (s *GormStore) Calls(ctx context.Context) ([]record.Call, error) {
	var models []callModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("read calls: %w", err)
	}
	out := make([]record.Call, len(models))
	for i, m := range models {
		out[i] = record.Call(m)
	}
	return out, nil
}

// Orders returns the full persisted order snapshot.
func (s *GormStore) Orders(ctx context.Context) ([]record.Order, error) {
	var models []orderModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	out := make([]record.Order, len(models))
	for i, m := range models {
		out[i] = record.Order(m)
	}
	return out, nil
}

// CostBasis returns the externally maintained cost-basis table.
func (s *GormStore) CostBasis(ctx context.Context) ([]record.CostBasisEntry, error) {
	var models []costBasisModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("read cost basis: %w", err)
	}
	out := make([]record.CostBasisEntry, len(models))
	for i, m := range models {
		out[i] = record.CostBasisEntry(m)
	}
	return out, nil
}

// ReplaceReconciled swaps the reconciled dataset for rows. Rows are written
// individually so one bad row is logged and skipped while the rest of the
// batch commits.
func (s *GormStore) ReplaceReconciled(ctx context.Context, rows []record.Reconciled) (int, error) {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&reconciledModel{}).Error; err != nil {
		return 0, fmt.Errorf("clear reconciled dataset: %w", err)
	}

	stored := 0
	for _, r := range rows {
		m := reconciledModel{
			PhoneKey:       r.PhoneKey,
			Email:          r.Email,
			CallStartedAt:  r.CallStartedAt,
			DurationSec:    r.DurationSec,
			CallCost:       r.CallCost,
			OrderNumber:    r.OrderNumber,
			OrderCreatedAt: r.OrderCreatedAt,
			TotalPrice:     r.TotalPrice,
			DiscountCodes:  r.DiscountCodes,
			CustomerName:   r.CustomerName,
			Title:          r.Title,
			Cost:           r.Cost,
		}
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			metrics.RecordRowWriteFailure()
			s.log.Warn(ctx, "skipping reconciled row",
				logger.String("order_number", r.OrderNumber),
				logger.Error(err),
			)
			continue
		}
		stored++
	}
	return stored, nil
}

// Reconciled returns the current reconciled dataset.
func (s *GormStore) Reconciled(ctx context.Context) ([]record.Reconciled, error) {
	var models []reconciledModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("read reconciled dataset: %w", err)
	}
	out := make([]record.Reconciled, len(models))
	for i, m := range models {
		out[i] = record.Reconciled{
			PhoneKey:       m.PhoneKey,
			Email:          m.Email,
			CallStartedAt:  m.CallStartedAt,
			DurationSec:    m.DurationSec,
			CallCost:       m.CallCost,
			OrderNumber:    m.OrderNumber,
			OrderCreatedAt: m.OrderCreatedAt,
			TotalPrice:     m.TotalPrice,
			DiscountCodes:  m.DiscountCodes,
			CustomerName:   m.CustomerName,
			Title:          m.Title,
			Cost:           m.Cost,
		}
	}
	return out, nil
}

// Counts reports persisted row counts.
func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		model any
		dst   *int64
	}{
		{&callModel{}, &c.Calls},
		{&orderModel{}, &c.Orders},
		{&reconciledModel{}, &c.Reconciled},
		{&costBasisModel{}, &c.CostBasis},
	} {
		if err := s.db.WithContext(ctx).Model(q.model).Count(q.dst).Error; err != nil {
			return Counts{}, fmt.Errorf("count rows: %w", err)
		}
	}
	return c, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
