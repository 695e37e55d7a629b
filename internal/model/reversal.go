package model

import "time"

// PendingReversal 상태 상수
const (
	ReversalStatusOpen      = "open"
	ReversalStatusDone      = "done"
	ReversalStatusCancelled = "cancelled"
)

// PendingReversal - 임시 제외의 자동 해제 예약 레코드
// 프로세스 재시작에도 살아남도록 DB에 저장되고, 기동 시 복구 스윕이 다시 무장시킴
type PendingReversal struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"member_id"`
	GuildID     string     `json:"guild_id"`
	RoleID      string     `json:"role_id"`
	DueAt       time.Time  `json:"due_at"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
