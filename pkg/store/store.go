package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/vesselworks/vesseltrace/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TestRepository provides persistence for test records.
type TestRepository interface {
	CreateTest(ctx context.Context, t *TestRecord) error
	SaveTest(ctx context.Context, t *TestRecord) error
	GetTest(ctx context.Context, id uint) (*TestRecord, error)
	ListTests(ctx context.Context) ([]TestRecord, error)
	ListTestsBySerial(ctx context.Context, serial string) ([]TestRecord, error)

	// DeleteTestCascade removes a test record and its linked repair
	// record, if any, in a single transaction: child first, then parent.
	DeleteTestCascade(ctx context.Context, id uint) error
}

// RepairRepository provides persistence for repair records.
type RepairRepository interface {
	// CreateRepairForTest inserts a repair record and sets the
	// back-reference on its test record in a single transaction.
	CreateRepairForTest(ctx context.Context, r *RepairRecord) error

	SaveRepair(ctx context.Context, r *RepairRecord) error
	GetRepair(ctx context.Context, id uint) (*RepairRecord, error)
	GetRepairByTestID(ctx context.Context, testID uint) (*RepairRecord, error)
	ListRepairs(ctx context.Context) ([]RepairRecord, error)
	ListRepairsBySerial(ctx context.Context, serial string) ([]RepairRecord, error)

	// DeleteRepairRelease removes a repair record and clears the
	// back-reference on its test record, in that order, in a single
	// transaction. The test record itself is left intact.
	DeleteRepairRelease(ctx context.Context, id uint) error
}

// Store provides persistence for the full record set.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	TestRepository
	RepairRepository
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&TestRecord{},
		&RepairRecord{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// translate maps driver-level lookup misses onto ErrNotFound.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return err
}

// --- Test record CRUD ---

func (s *store) CreateTest(ctx context.Context, t *TestRecord) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("creating test record: %w", err)
	}

	return nil
}

func (s *store) SaveTest(ctx context.Context, t *TestRecord) error {
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("updating test record: %w", err)
	}

	return nil
}

func (s *store) GetTest(ctx context.Context, id uint) (*TestRecord, error) {
	var t TestRecord
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, fmt.Errorf("getting test record: %w", translate(err))
	}

	return &t, nil
}

func (s *store) ListTests(ctx context.Context) ([]TestRecord, error) {
	var tests []TestRecord
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("listing test records: %w", err)
	}

	return tests, nil
}

func (s *store) ListTestsBySerial(
	ctx context.Context, serial string,
) ([]TestRecord, error) {
	var tests []TestRecord
	if err := s.db.WithContext(ctx).
		Where("asset_serial_number = ?", serial).
		Order("id ASC").
		Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("listing test records by serial: %w", err)
	}

	return tests, nil
}

func (s *store) DeleteTestCascade(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t TestRecord
		if err := tx.First(&t, id).Error; err != nil {
			return fmt.Errorf("getting test record: %w", translate(err))
		}

		// Child first so a partial failure leaves the parent intact
		// and diagnosable.
		if err := tx.Where("test_record_id = ?", id).
			Delete(&RepairRecord{}).Error; err != nil {
			return fmt.Errorf("deleting linked repair record: %w", err)
		}

		if err := tx.Delete(&TestRecord{}, id).Error; err != nil {
			return fmt.Errorf("deleting test record: %w", err)
		}

		return nil
	})
}

// --- Repair record CRUD ---

func (s *store) CreateRepairForTest(
	ctx context.Context, r *RepairRecord,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("creating repair record: %w", err)
		}

		if err := tx.Model(&TestRecord{}).
			Where("id = ?", r.TestRecordID).
			Update("repair_record_id", r.ID).Error; err != nil {
			return fmt.Errorf("linking repair to test record: %w", err)
		}

		return nil
	})
}

func (s *store) SaveRepair(ctx context.Context, r *RepairRecord) error {
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("updating repair record: %w", err)
	}

	return nil
}

func (s *store) GetRepair(
	ctx context.Context, id uint,
) (*RepairRecord, error) {
	var r RepairRecord
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, fmt.Errorf("getting repair record: %w", translate(err))
	}

	return &r, nil
}

func (s *store) GetRepairByTestID(
	ctx context.Context, testID uint,
) (*RepairRecord, error) {
	var r RepairRecord
	if err := s.db.WithContext(ctx).
		Where("test_record_id = ?", testID).
		First(&r).Error; err != nil {
		return nil, fmt.Errorf("getting repair record by test id: %w", translate(err))
	}

	return &r, nil
}

func (s *store) ListRepairs(ctx context.Context) ([]RepairRecord, error) {
	var repairs []RepairRecord
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Find(&repairs).Error; err != nil {
		return nil, fmt.Errorf("listing repair records: %w", err)
	}

	return repairs, nil
}

func (s *store) ListRepairsBySerial(
	ctx context.Context, serial string,
) ([]RepairRecord, error) {
	var repairs []RepairRecord
	if err := s.db.WithContext(ctx).
		Where("asset_serial_number = ?", serial).
		Order("id ASC").
		Find(&repairs).Error; err != nil {
		return nil, fmt.Errorf("listing repair records by serial: %w", err)
	}

	return repairs, nil
}

func (s *store) DeleteRepairRelease(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r RepairRecord
		if err := tx.First(&r, id).Error; err != nil {
			return fmt.Errorf("getting repair record: %w", translate(err))
		}

		if err := tx.Delete(&RepairRecord{}, id).Error; err != nil {
			return fmt.Errorf("deleting repair record: %w", err)
		}

		if err := tx.Model(&TestRecord{}).
			Where("id = ?", r.TestRecordID).
			Update("repair_record_id", nil).Error; err != nil {
			return fmt.Errorf("clearing repair back-reference: %w", err)
		}

		return nil
	})
}
