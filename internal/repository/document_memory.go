package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// MemoryDocumentStore 进程内文档存储，用于测试和 STORE_DRIVER=memory
type MemoryDocumentStore struct {
	mu    sync.RWMutex
	seq   int64
	colls map[string]map[string]*memoryDoc
	now   func() time.Time
}

type memoryDoc struct {
	doc Document
	seq int64 // 插入顺序，排序相等时保持稳定
}

// NewMemoryDocumentStore 创建内存文档存储
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		colls: make(map[string]map[string]*memoryDoc),
		now:   time.Now,
	}
}

func (s *MemoryDocumentStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.colls[collection]
	if !ok {
		coll = make(map[string]*memoryDoc)
		s.colls[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return nil, fmt.Errorf("document %s/%s already exists", collection, id)
	}
	s.seq++
	now := s.now()
	d := &memoryDoc{
		doc: Document{
			ID:         id,
			Collection: collection,
			Fields:     maps.Clone(fields),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		seq: s.seq,
	}
	coll[id] = d
	return cloneDoc(&d.doc), nil
}

func (s *MemoryDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.colls[collection][id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	if d.doc.Fields == nil {
		d.doc.Fields = make(map[string]any, len(fields))
	}
	maps.Copy(d.doc.Fields, fields)
	d.doc.UpdatedAt = s.now()
	return cloneDoc(&d.doc), nil
}

func (s *MemoryDocumentStore) ListWhere(ctx context.Context, collection string, q Query) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*memoryDoc, 0)
	for _, d := range s.colls[collection] {
		if matches(d.doc.Fields, q.Where) {
			matched = append(matched, d)
		}
	}

	// 排序值相同时按插入顺序，方向与 Desc 一致
	desc := q.OrderBy != "" && q.Desc
	sort.Slice(matched, func(i, j int) bool {
		c := 0
		if q.OrderBy != "" {
			c = compareValues(matched[i].doc.Fields[q.OrderBy], matched[j].doc.Fields[q.OrderBy])
		}
		if c == 0 {
			c = cmp.Compare(matched[i].seq, matched[j].seq)
		}
		if desc {
			c = -c
		}
		return c < 0
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	docs := make([]*Document, len(matched))
	for i, d := range matched {
		docs[i] = cloneDoc(&d.doc)
	}
	return docs, nil
}

func (s *MemoryDocumentStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.colls[collection][id]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.colls[collection], id)
	return nil
}

func cloneDoc(d *Document) *Document {
	c := *d
	c.Fields = maps.Clone(d.Fields)
	return &c
}
