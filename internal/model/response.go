package model

type AuthLogoutResponse struct {
	Status string `json:"status"`
}

type AuthMeResponse struct {
	UserID         int64  `json:"userId"`
	LoginID        string `json:"loginId"`
	DiscordUserID  string `json:"discordUserId"`
	CanRaiseAlerts bool   `json:"canRaiseAlerts"`
}

// AlertRaisedResponse - 알림 처리 결과
// Warnings에는 채널 임베드 전송 실패 등 치명적이지 않은 오류가 담김
type AlertRaisedResponse struct {
	Status     string   `json:"status"`
	AlertID    int64    `json:"alert_id"`
	MemberID   string   `json:"member_id"`
	AlertCount int      `json:"alert_count"`
	Sanction   string   `json:"sanction"`
	Automatic  bool     `json:"automatic"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ManualSanctionResponse - 수동 제재(밴/임시 제외) 결과
type ManualSanctionResponse struct {
	Status   string `json:"status"`
	MemberID string `json:"member_id"`
	Sanction string `json:"sanction"`
	Ledgered bool   `json:"ledgered"`
}

// ExclusionCancelledResponse - 임시 제외 조기 해제 결과
type ExclusionCancelledResponse struct {
	Status    string `json:"status"`
	MemberID  string `json:"member_id"`
	Cancelled int    `json:"cancelled"`
}
