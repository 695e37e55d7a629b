package db

import (
	"context"
	"fmt"

	"github.com/modguard/backend/internal/model"
)

// EnsureReversalSchema - pending_reversals 테이블 생성
// 임시 제외의 자동 해제 예약을 DB에 남겨 프로세스 재시작에도 살아남게 함
func (db *Postgres) EnsureReversalSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS pending_reversals (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			role_id TEXT NOT NULL,
			due_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)
		`,
		`CREATE INDEX IF NOT EXISTS pending_reversals_status_idx ON pending_reversals(status)`,
		`CREATE INDEX IF NOT EXISTS pending_reversals_member_id_idx ON pending_reversals(member_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertPendingReversal - 해제 예약 저장
func (db *Postgres) InsertPendingReversal(ctx context.Context, r model.PendingReversal) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO pending_reversals (id, member_id, guild_id, role_id, due_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, r.ID, r.MemberID, r.GuildID, r.RoleID, r.DueAt, model.ReversalStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to insert pending reversal: %w", err)
	}
	return nil
}

// GetPendingReversal - 해제 예약 단건 조회
func (db *Postgres) GetPendingReversal(ctx context.Context, id string) (*model.PendingReversal, error) {
	var r model.PendingReversal
	err := db.Pool.QueryRow(ctx, `
		SELECT id, member_id, guild_id, role_id, due_at, status, created_at, completed_at
		FROM pending_reversals
		WHERE id = $1
	`, id).Scan(&r.ID, &r.MemberID, &r.GuildID, &r.RoleID, &r.DueAt, &r.Status, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetOpenReversals - 아직 실행되지 않은 해제 예약 전체 조회 (기동 시 복구 스윕용)
func (db *Postgres) GetOpenReversals(ctx context.Context) ([]model.PendingReversal, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, member_id, guild_id, role_id, due_at, status, created_at, completed_at
		FROM pending_reversals
		WHERE status = 'open'
		ORDER BY due_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.PendingReversal
	for rows.Next() {
		var r model.PendingReversal
		if err := rows.Scan(&r.ID, &r.MemberID, &r.GuildID, &r.RoleID, &r.DueAt, &r.Status, &r.CreatedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}

	if list == nil {
		list = []model.PendingReversal{}
	}
	return list, nil
}

// CompletePendingReversal - 해제 실행 완료 기록
// open 상태였을 때만 done으로 바꾸고 true 반환 (취소된 예약과의 경쟁 방지)
func (db *Postgres) CompletePendingReversal(ctx context.Context, id string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE pending_reversals
		SET status = 'done', completed_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete pending reversal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelOpenReversalsForMember - 멤버의 열린 해제 예약을 모두 취소
// 운영자가 조기 해제했을 때 이미 무장된 타이머가 헛발사하지 않도록 함
func (db *Postgres) CancelOpenReversalsForMember(ctx context.Context, memberID string) (int, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE pending_reversals
		SET status = 'cancelled', completed_at = NOW()
		WHERE member_id = $1 AND status = 'open'
	`, memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending reversals: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
