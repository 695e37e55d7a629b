package config

import "os"

type Config struct {
	Discord  DiscordConfig
	Sanction SanctionConfig
	Auth     AuthConfig
	Postgres PostgresConfig
}

type DiscordConfig struct {
	BotToken       string
	GuildID        string
	AlertChannelID string
	LogChannelID   string
}

type SanctionConfig struct {
	// PermissionRoleID: 알림 명령을 쓸 수 있는 운영자 역할 ID
	PermissionRoleID string
	// RestrictedRoleID: 제재 시 부여되는 차단 역할 ID
	RestrictedRoleID string
	// LedgerManualActions: true면 수동 제재도 alerts 테이블에 기록
	LedgerManualActions string
}

type AuthConfig struct {
	JWTSecret      string
	JWTAccessTTL   string
	JWTRefreshTTL  string
	AllowSignup    string
	AdminUsername  string
	AdminPassword  string
	CookieDomain   string
	CookiePath     string
	CookieSecure   string
	CookieSameSite string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	return Config{
		Discord: DiscordConfig{
			BotToken:       os.Getenv("DISCORD_BOT_TOKEN"),
			GuildID:        os.Getenv("DISCORD_GUILD_ID"),
			AlertChannelID: os.Getenv("ALERT_CHANNEL_ID"),
			LogChannelID:   os.Getenv("LOG_CHANNEL_ID"),
		},
		Sanction: SanctionConfig{
			PermissionRoleID:    os.Getenv("ALERT_PERMISSION_ROLE_ID"),
			RestrictedRoleID:    os.Getenv("RESTRICTED_ROLE_ID"),
			LedgerManualActions: os.Getenv("LEDGER_MANUAL_ACTIONS"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "15m"),
			JWTRefreshTTL:  getenv("JWT_REFRESH_TTL", "720h"),
			AllowSignup:    os.Getenv("ALLOW_SIGNUP"),
			AdminUsername:  os.Getenv("ADMIN_USERNAME"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     os.Getenv("AUTH_COOKIE_PATH"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
