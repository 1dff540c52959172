package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// documentRecord documents 表，fields 为 jsonb
type documentRecord struct {
	Collection string            `gorm:"primaryKey;type:varchar(64)"`
	ID         string            `gorm:"primaryKey;type:varchar(64)"`
	Fields     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time         `gorm:"index"`
	UpdatedAt  time.Time
}

func (documentRecord) TableName() string {
	return "documents"
}

func (r *documentRecord) toDocument() *Document {
	return &Document{
		ID:         r.ID,
		Collection: r.Collection,
		Fields:     map[string]any(r.Fields),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// 排序字段会拼进 SQL，只允许简单标识符
var fieldNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// GormDocumentStore 基于 postgres jsonb 的文档存储
type GormDocumentStore struct {
	db *gorm.DB
}

// NewGormDocumentStore 创建文档存储
func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db}
}

func (s *GormDocumentStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	rec := &documentRecord{
		Collection: collection,
		ID:         id,
		Fields:     datatypes.JSONMap(maps.Clone(fields)),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec.toDocument(), nil
}

func (s *GormDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("collection = ? AND id = ?", collection, id).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		if err != nil {
			return err
		}
		if rec.Fields == nil {
			rec.Fields = datatypes.JSONMap{}
		}
		maps.Copy(rec.Fields, fields)
		rec.UpdatedAt = time.Now()
		return tx.Model(&documentRecord{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"fields": rec.Fields, "updated_at": rec.UpdatedAt}).Error
	})
	if err != nil {
		return nil, err
	}
	return rec.toDocument(), nil
}

func (s *GormDocumentStore) ListWhere(ctx context.Context, collection string, q Query) ([]*Document, error) {
	tx, err := buildListQuery(s.db.WithContext(ctx), collection, q)
	if err != nil {
		return nil, err
	}
	var recs []documentRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, err
	}
	docs := make([]*Document, len(recs))
	for i := range recs {
		docs[i] = recs[i].toDocument()
	}
	return docs, nil
}

func (s *GormDocumentStore) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).Where("collection = ? AND id = ?", collection, id).Delete(&documentRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// buildListQuery 把 Query 翻译为 gorm 查询
func buildListQuery(db *gorm.DB, collection string, q Query) (*gorm.DB, error) {
	tx := db.Model(&documentRecord{}).Where("collection = ?", collection)
	for _, p := range q.Where {
		if !fieldNamePattern.MatchString(p.Field) {
			return nil, fmt.Errorf("invalid field name %q", p.Field)
		}
		tx = tx.Where(datatypes.JSONQuery("fields").Equals(p.Value, p.Field))
	}

	order := "created_at ASC"
	if q.OrderBy != "" {
		if !fieldNamePattern.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("invalid order field %q", q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		// jsonb 比较：数字按数值，字符串按字典序；相同值按创建时间，方向一致
		order = fmt.Sprintf("fields -> '%s' %s, created_at %s", q.OrderBy, dir, dir)
	}
	tx = tx.Order(order)

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx, nil
}
