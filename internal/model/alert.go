// 알림(Alert) 원장 레코드와 요청/응답 구조체를 정의
// handler, service, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의

package model

import "time"

// Alert - 멤버에게 기록된 경고 한 건
// 한 번 기록되면 수정/삭제되지 않는 append-only 레코드
// Sanction만 처리 직후 감사용으로 한 번 기록됨 (카운트에는 영향 없음)
type Alert struct {
	ID         int64  `json:"id"`
	MemberID   string `json:"member_id"`
	ExecutorID string `json:"executor_id"`
	Reason     string `json:"reason"`

	// Sanction: 운영자가 지정한 수동 제재, 없으면 정책이 결정한 제재가 기록됨
	Sanction *string `json:"sanction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// RaiseAlertRequest - 알림 등록 요청
// MemberID와 MemberName 중 하나는 필수, 둘 다 있으면 MemberID 우선
type RaiseAlertRequest struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	Reason     string `json:"reason"`

	// Sanction: 비어있지 않으면 자동 에스컬레이션 대신 이 제재가 적용됨
	Sanction string `json:"sanction"`
}

// AlertListResponse - 알림 목록 조회 응답 항목
type AlertListResponse struct {
	ID         int64     `json:"id"`
	MemberID   string    `json:"member_id"`
	ExecutorID string    `json:"executor_id"`
	Reason     string    `json:"reason"`
	Sanction   *string   `json:"sanction"`
	CreatedAt  time.Time `json:"created_at"`
}
