package thread

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
)

type (
	threadRecord struct {
		UserID    string `gorm:"primaryKey"`
		ThreadID  string `gorm:"primaryKey"`
		Persona   datatypes.JSONType[entity.Persona]
		Status    string
		CreatedAt time.Time
		ExpiresAt int64
	}

	messageRecord struct {
		ID         uint   `gorm:"primarykey"`
		UserID     string `gorm:"index:idx_message_thread"`
		ThreadID   string `gorm:"index:idx_message_thread"`
		MessageID  string
		Sender     string
		Content    string
		AudioClips datatypes.JSONSlice[string]
		CreatedAt  time.Time
	}

	// GormStore is the local backend used by the REPL and tests. Status
	// transitions run inside transactions with row locks, which stands in
	// for the conditional updates of the production store.
	GormStore struct {
		logger *slog.Logger
		db     *gorm.DB
	}
)

func (threadRecord) TableName() string  { return "threads" }
func (messageRecord) TableName() string { return "messages" }

var _ Store = (*GormStore)(nil)

func NewGormStore(logger *slog.Logger, db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&threadRecord{}, &messageRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate thread schema")
	}
	return &GormStore{logger: logger, db: db}, nil
}

func (s *GormStore) CreateThread(ctx context.Context, userID, threadID string, persona entity.Persona) (*entity.Thread, error) {
	now := time.Now().UTC()
	record := threadRecord{
		UserID:    userID,
		ThreadID:  threadID,
		Persona:   datatypes.NewJSONType(persona),
		Status:    string(entity.StatusNew),
		CreatedAt: now,
		ExpiresAt: now.Add(90 * 24 * time.Hour).Unix(),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to create thread")
	}

	return recordToThread(record, nil), nil
}

func (s *GormStore) GetThread(ctx context.Context, userID, threadID string) (*entity.Thread, error) {
	var record threadRecord
	r := s.db.WithContext(ctx).Find(&record, "user_id = ? AND thread_id = ?", userID, threadID)
	if r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to find thread")
	}
	if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
	}

	messages, err := s.GetMessages(ctx, userID, threadID, "ASC", 0)
	if err != nil {
		return nil, err
	}

	return recordToThread(record, messages), nil
}

func (s *GormStore) GetMessages(ctx context.Context, userID, threadID string, order string, limit int) ([]entity.Message, error) {
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid order %q", order)
	}

	stmt := s.db.WithContext(ctx).
		Where("user_id = ? AND thread_id = ?", userID, threadID).
		Order("id " + order)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var records []messageRecord
	if err := stmt.Find(&records).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to find messages")
	}

	messages := make([]entity.Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, entity.Message{
			ID:         record.MessageID,
			Sender:     entity.Sender(record.Sender),
			Content:    record.Content,
			AudioClips: record.AudioClips,
			CreatedAt:  record.CreatedAt,
		})
	}

	return messages, nil
}

func (s *GormStore) AppendMessage(ctx context.Context, userID, threadID string, message entity.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record threadRecord
		if r := tx.Find(&record, "user_id = ? AND thread_id = ?", userID, threadID); r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find thread")
		} else if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
		}

		return errors.Wrapf(tx.Create(&messageRecord{
			UserID:     userID,
			ThreadID:   threadID,
			MessageID:  message.ID,
			Sender:     string(message.Sender),
			Content:    message.Content,
			AudioClips: message.AudioClips,
			CreatedAt:  message.CreatedAt,
		}).Error, "failed to save message")
	})
}

func (s *GormStore) SetStatus(ctx context.Context, userID, threadID string, status entity.Status) error {
	r := s.db.WithContext(ctx).
		Model(&threadRecord{}).
		Where("user_id = ? AND thread_id = ?", userID, threadID).
		Update("status", string(status))
	if r.Error != nil {
		return errors.Wrapf(r.Error, "failed to set status")
	}
	if r.RowsAffected == 0 {
		return errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
	}
	return nil
}

func (s *GormStore) MarkPending(ctx context.Context, userID, threadID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record threadRecord
		r := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Find(&record, "user_id = ? AND thread_id = ?", userID, threadID)
		if r.Error != nil {
			return errors.Wrapf(r.Error, "failed to find thread")
		}
		if r.RowsAffected == 0 {
			return errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
		}
		if !entity.Status(record.Status).Admissible() {
			return errors.Wrapf(errors.ErrThreadBusy, "thread %s is %s", threadID, record.Status)
		}

		return errors.Wrapf(tx.Model(&threadRecord{}).
			Where("user_id = ? AND thread_id = ?", userID, threadID).
			Update("status", string(entity.StatusPending)).Error,
			"failed to mark thread pending")
	})
}

func recordToThread(record threadRecord, messages []entity.Message) *entity.Thread {
	return &entity.Thread{
		UserID:    record.UserID,
		ThreadID:  record.ThreadID,
		Persona:   record.Persona.Data(),
		Messages:  messages,
		Status:    entity.Status(record.Status),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}
