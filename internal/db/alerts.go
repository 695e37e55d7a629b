package db

import (
	"context"
	"fmt"

	"github.com/modguard/backend/internal/model"
)

// EnsureAlertSchema - alerts 테이블 생성
func (db *Postgres) EnsureAlertSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			member_id TEXT NOT NULL,
			executor_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			sanction TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS alerts_member_id_idx ON alerts(member_id)`,
		`CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// InsertAlertWithCount - 알림 한 건 저장 후 해당 멤버의 누적 건수 반환
//
// INSERT와 COUNT를 같은 트랜잭션에서 수행:
// 같은 멤버에 대한 동시 알림이 같은 카운트를 관측해 에스컬레이션 단계를
// 건너뛰는 일이 없도록 보장
func (db *Postgres) InsertAlertWithCount(ctx context.Context, memberID, executorID, reason string, sanction *string) (*model.Alert, int, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin alert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var alert model.Alert
	err = tx.QueryRow(ctx, `
		INSERT INTO alerts (member_id, executor_id, reason, sanction, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, member_id, executor_id, reason, sanction, created_at
	`, memberID, executorID, reason, sanction).Scan(
		&alert.ID,
		&alert.MemberID,
		&alert.ExecutorID,
		&alert.Reason,
		&alert.Sanction,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM alerts WHERE member_id = $1`, memberID).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit alert: %w", err)
	}

	return &alert, count, nil
}

// UpdateAlertSanction - 처리 완료 후 최종 제재를 감사용으로 기록
// 카운트는 행 존재 여부로 계산되므로 이 갱신은 에스컬레이션에 영향 없음
func (db *Postgres) UpdateAlertSanction(ctx context.Context, alertID int64, sanction string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE alerts
		SET sanction = $2
		WHERE id = $1 AND sanction IS NULL
	`, alertID, sanction)
	return err
}

// GetAlertsByMember - 특정 멤버의 알림 이력 조회 (최신순)
func (db *Postgres) GetAlertsByMember(ctx context.Context, memberID string) ([]model.AlertListResponse, error) {
	query := `
		SELECT id, member_id, executor_id, reason, sanction, created_at
		FROM alerts
		WHERE member_id = $1
		ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.AlertListResponse
	for rows.Next() {
		var a model.AlertListResponse
		if err := rows.Scan(&a.ID, &a.MemberID, &a.ExecutorID, &a.Reason, &a.Sanction, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}

	if list == nil {
		list = []model.AlertListResponse{}
	}
	return list, nil
}

// GetAlertList - 전체 알림 목록 조회 (최신순)
func (db *Postgres) GetAlertList(ctx context.Context) ([]model.AlertListResponse, error) {
	query := `
		SELECT id, member_id, executor_id, reason, sanction, created_at
		FROM alerts
		ORDER BY created_at DESC`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.AlertListResponse
	for rows.Next() {
		var a model.AlertListResponse
		if err := rows.Scan(&a.ID, &a.MemberID, &a.ExecutorID, &a.Reason, &a.Sanction, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}

	if list == nil {
		list = []model.AlertListResponse{}
	}
	return list, nil
}
