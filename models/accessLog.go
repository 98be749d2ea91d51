package models

import (
	"context"
	"time"

	"bitbucket.org/partsadmin/parts_backend/config"
)

type AccessLog struct {
	ID         int        `gorm:"primary_key" json:"log_id"`
	UserId     int        `gorm:"index" json:"user_id"`
	Username   string     `gorm:"size:100" json:"username"`
	LoginTime  time.Time  `json:"login_time"`
	LogoutTime *time.Time `json:"logout_time"`
	IpAddress  string     `gorm:"size:45" json:"ip_address"`
	LogoutIp   string     `gorm:"size:45" json:"logout_ip"`
	UserAgent  string     `gorm:"size:255" json:"user_agent"`
	SessionId  string     `gorm:"size:255;index" json:"session_id"`
}

// LogLogin is best-effort: a failed insert is logged and swallowed so audit
// bookkeeping can never block a login.
func LogLogin(ctx context.Context, userId int, username string, ipAddress string, userAgent string, sessionId string) {
	db := config.GetDB()
	entry := AccessLog{
		UserId:    userId,
		Username:  username,
		LoginTime: time.Now(),
		IpAddress: ipAddress,
		UserAgent: userAgent,
		SessionId: sessionId,
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		config.LogWarn(config.GetLogger(), "models", "LogLogin", "access log insert failed", err)
	}
}

func LogLogout(ctx context.Context, sessionId string, logoutIp string) {
	if sessionId == "" {
		return
	}
	db := config.GetDB()
	now := time.Now()
	err := db.WithContext(ctx).Model(&AccessLog{}).
		Where("session_id = ? AND logout_time IS NULL", sessionId).
		Updates(map[string]interface{}{
			"LogoutTime": &now,
			"LogoutIp":   logoutIp,
		}).Error
	if err != nil {
		config.LogWarn(config.GetLogger(), "models", "LogLogout", "access log update failed", err)
	}
}

func GetAllAccessLogs(ctx context.Context) ([]*AccessLog, error) {
	db := config.GetDB()
	var results []*AccessLog
	if err := db.WithContext(ctx).Order("login_time DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetAccessLogsByUserId(ctx context.Context, userId int) ([]*AccessLog, error) {
	db := config.GetDB()
	var results []*AccessLog
	err := db.WithContext(ctx).Where("user_id = ?", userId).
		Order("login_time DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
