package model

import (
	"context"
	"time"
)

// User 用户模型
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"unique;not null"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account 对外暴露的当前用户信息
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Account 转换为对外结构
func (u *User) Account() *Account {
	return &Account{ID: u.ID, Name: u.Name, Email: u.Email}
}

type accountKey struct{}

// WithAccount 把当前用户放入 context
func WithAccount(ctx context.Context, a *Account) context.Context {
	return context.WithValue(ctx, accountKey{}, a)
}

// AccountFrom 从 context 取出当前用户，未登录返回 nil
func AccountFrom(ctx context.Context) *Account {
	a, _ := ctx.Value(accountKey{}).(*Account)
	return a
}
