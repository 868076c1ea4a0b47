package domain

import (
	"time"
)

// AuthUser is an account of the local identity provider.
type AuthUser struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Email       string     `gorm:"size:255;uniqueIndex" json:"email"`
	Password    string     `gorm:"size:255" json:"-"`
	Verified    bool       `gorm:"default:false" json:"verified"`
	VerifyToken string     `gorm:"size:64;index" json:"-"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (AuthUser) TableName() string {
	return "auth_users"
}

// AdminLog records one admin mutation.
type AdminLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `gorm:"size:255" json:"opr_name"`
	OprIp     string    `gorm:"size:64" json:"opr_ip"`
	OptAction string    `gorm:"size:32;index" json:"opt_action"`
	ProductID string    `gorm:"size:36;index" json:"product_id"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (AdminLog) TableName() string {
	return "admin_log"
}
