package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Username   string    `gorm:"index;size:100;not null" json:"username" binding:"required"`
	Email      string    `gorm:"size:255" json:"email"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

var ErrorInvalidCredentials = errors.New("invalid username or password")

// Login verifies credentials and returns a signed JWT. The token is also
// registered in redis so the session middleware can resolve it.
func Login(ctx context.Context, input *LoginInput) (string, *User, error) {

	var user User
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("username = ? AND is_active = 1", input.Username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrorInvalidCredentials
		}
		return "", nil, err
	}

	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return "", nil, ErrorInvalidCredentials
	}

	token, err := utils.JwtGenerate(user.ID, user.BusinessId)
	if err != nil {
		return "", nil, err
	}

	if err := config.SetRedisValue("Token:"+token, user.BusinessId, 24*time.Hour); err != nil {
		return "", nil, err
	}

	return token, &user, nil
}
