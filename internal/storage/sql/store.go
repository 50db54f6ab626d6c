package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailroute/backend/internal/domain"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）。
type Store struct {
	db         *gorm.DB
	driverName string // "mysql" or "postgres"
}

var _ domain.Store = (*Store)(nil)

// NewStore 创建 SQL 数据库存储。
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error
	switch driverName {
	case "mysql":
		db, err = gorm.Open(mysql.Open(dsn), gormConfig)
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, driverName: driverName}

	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 执行数据库迁移（使用 GORM AutoMigrate）。
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Mailbox{},
		&domain.Message{},
		&domain.Attachment{},
		&domain.ProcessedDelivery{},
		&domain.CustomDomain{},
		&domain.VerificationRecord{},
		&domain.DomainIssue{},
	)
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// SaveMailbox 保存邮箱信息（存在则更新）。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	return s.db.Save(mailbox).Error
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.db.First(&mailbox, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱（大小写不敏感）。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.db.First(&mailbox, "lower(address) = lower(?)", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// DeleteMailbox 删除邮箱及其全部邮件和附件。
func (s *Store) DeleteMailbox(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Mailbox{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrMailboxNotFound
		}
		return s.deleteMailboxContent(tx, id)
	})
}

// DeleteExpiredMailboxes 删除全部已过期邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes() (int, error) {
	var count int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&domain.Mailbox{}).
			Where("expires_at IS NOT NULL AND expires_at < ?", time.Now().UTC()).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Delete(&domain.Mailbox{}, "id IN ?", ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.deleteMailboxContent(tx, id); err != nil {
				return err
			}
		}
		count = len(ids)
		return nil
	})
	return count, err
}

func (s *Store) deleteMailboxContent(tx *gorm.DB, mailboxID string) error {
	var messageIDs []string
	if err := tx.Model(&domain.Message{}).
		Where("mailbox_id = ?", mailboxID).
		Pluck("id", &messageIDs).Error; err != nil {
		return err
	}
	if len(messageIDs) > 0 {
		if err := tx.Delete(&domain.Attachment{}, "message_id IN ?", messageIDs).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&domain.Message{}, "mailbox_id = ?", mailboxID).Error
}
