package model

import "time"

type AuthRequest struct {
	ID            string `json:"id"`
	Password      string `json:"password"`
	DiscordUserID string `json:"discordUserId,omitempty"`
}

type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type AuthConfigResponse struct {
	AllowSignup bool `json:"allowSignup"`
}

// AuthUser - 액세스 토큰에서 복원된 운영자
// CanRaiseAlerts는 로그인 시점에 길드의 권한 역할 보유 여부로 결정됨
type AuthUser struct {
	ID             int64
	LoginID        string
	DiscordUserID  string
	CanRaiseAlerts bool
}

type Operator struct {
	ID             int64
	LoginID        string
	PasswordHash   string
	DiscordUserID  string
	CanRaiseAlerts bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
