package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// 集合名称
const (
	CollectionSearchEvents = "search_events"
	CollectionBookmarks    = "saved_movies"
)

// ErrDocumentNotFound 文档不存在
var ErrDocumentNotFound = errors.New("document not found")

// Document 无模式文档
type Document struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Predicate 字段相等条件
type Predicate struct {
	Field string
	Value any
}

// Equal 构造相等条件
func Equal(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// Query 列表查询：相等过滤 + 可选排序 + 可选条数限制
type Query struct {
	Where   []Predicate
	OrderBy string
	Desc    bool
	Limit   int // <= 0 表示不限制
}

// DocumentStore 文档存储
type DocumentStore interface {
	Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	// Update 合并写入字段，未出现的字段保持不变
	Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	ListWhere(ctx context.Context, collection string, q Query) ([]*Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// Int 读取整数字段，兼容内存存储的 int 和 JSON 解码后的 float64
func (d *Document) Int(field string) int {
	switch v := d.Fields[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

// String 读取字符串字段
func (d *Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Time 读取时间字段（存储为 TimeLayout 格式的字符串）
func (d *Document) Time(field string) time.Time {
	t, _ := time.Parse(TimeLayout, d.String(field))
	return t
}

// TimeLayout 定长 UTC 时间格式，字典序即时间序，便于按字段排序
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime 格式化为可排序的时间字符串
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// matches 判断文档是否满足全部相等条件
func matches(fields map[string]any, where []Predicate) bool {
	for _, p := range where {
		v, ok := fields[p.Field]
		if !ok || compareValues(v, p.Value) != 0 {
			return false
		}
	}
	return true
}

// compareValues 比较两个字段值：数字按数值，字符串按字典序，其余按 JSON 文本
func compareValues(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs)
	}
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return strings.Compare(string(aj), string(bj))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
