// 제재 집행기 정의
// 제재 라벨을 역할 부여/회수로 변환하고, 임시 제외의 자동 해제를 보장
//
// 해제 예약 흐름:
//  1. 역할 부여 직후 pending_reversals에 due_at 레코드 저장 (재시작에도 유지)
//  2. 프로세스 안에서 due_at까지 대기하는 타이머 고루틴 무장
//  3. 만기 시 레코드를 다시 읽어 open 상태일 때만 역할 회수 (취소와의 경쟁 방지)
//  4. 회수는 멱등: 이미 역할이 없어도 에러 아님
//  5. 기동 시 ResumePendingReversals가 열린 예약을 재무장, 연체분은 즉시 실행

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/modguard/backend/internal/client"
	"github.com/modguard/backend/internal/model"
)

var (
	ErrRoleUnavailable    = errors.New("restricted role unavailable")
	ErrRoleMutationFailed = errors.New("role mutation failed")
)

// roleClient - 역할 조작용 Discord 클라이언트 인터페이스
type roleClient interface {
	RoleExists(ctx context.Context, guildID, roleID string) (bool, error)
	AddMemberRole(ctx context.Context, guildID, memberID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, memberID, roleID string) error
}

// reversalStore - 해제 예약 저장소 인터페이스
type reversalStore interface {
	InsertPendingReversal(ctx context.Context, r model.PendingReversal) error
	GetPendingReversal(ctx context.Context, id string) (*model.PendingReversal, error)
	GetOpenReversals(ctx context.Context) ([]model.PendingReversal, error)
	CompletePendingReversal(ctx context.Context, id string) (bool, error)
	CancelOpenReversalsForMember(ctx context.Context, memberID string) (int, error)
}

// SanctionExecutor 구조체 정의
type SanctionExecutor struct {
	roles            roleClient
	reversals        reversalStore
	guildID          string
	restrictedRoleID string
}

// SanctionExecutor 객체 생성
func NewSanctionExecutor(roles roleClient, reversals reversalStore, guildID, restrictedRoleID string) *SanctionExecutor {
	return &SanctionExecutor{
		roles:            roles,
		reversals:        reversals,
		guildID:          guildID,
		restrictedRoleID: restrictedRoleID,
	}
}

// Apply - 제재 실행
// 임시 제외는 해제 예약까지 걸고 즉시 반환 (전체 기간 동안 호출자를 막지 않음)
func (e *SanctionExecutor) Apply(ctx context.Context, memberID string, sanction model.Sanction) error {
	switch sanction.Label {
	case model.SanctionWarning, model.SanctionNone:
		// 역할 조작 없음
		return nil

	case model.SanctionTemporaryExclusion:
		if err := e.grantRestrictedRole(ctx, memberID); err != nil {
			return err
		}
		if err := e.scheduleReversal(ctx, memberID, time.Now().Add(sanction.Duration)); err != nil {
			// 역할은 이미 부여됨 - 예약 실패는 보고하되 부여를 되돌리지 않음
			return err
		}
		return nil

	case model.SanctionPermanentBan:
		return e.grantRestrictedRole(ctx, memberID)

	default:
		return fmt.Errorf("unknown sanction label: %s", sanction.Label)
	}
}

func (e *SanctionExecutor) grantRestrictedRole(ctx context.Context, memberID string) error {
	exists, err := e.roles.RoleExists(ctx, e.guildID, e.restrictedRoleID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoleUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("%w: role %s not found in guild %s", ErrRoleUnavailable, e.restrictedRoleID, e.guildID)
	}

	if err := e.roles.AddMemberRole(ctx, e.guildID, memberID, e.restrictedRoleID); err != nil {
		return fmt.Errorf("%w: %v", ErrRoleMutationFailed, err)
	}
	return nil
}

// RevokeRestrictedRole - 역할 회수 (멱등: 이미 없으면 no-op)
func (e *SanctionExecutor) RevokeRestrictedRole(ctx context.Context, memberID string) error {
	err := e.roles.RemoveMemberRole(ctx, e.guildID, memberID, e.restrictedRoleID)
	if err != nil && !client.IsNotFound(err) {
		return fmt.Errorf("%w: %v", ErrRoleMutationFailed, err)
	}
	return nil
}

// scheduleReversal - 해제 예약 저장 후 타이머 무장
func (e *SanctionExecutor) scheduleReversal(ctx context.Context, memberID string, dueAt time.Time) error {
	reversal := model.PendingReversal{
		ID:       uuid.NewString(),
		MemberID: memberID,
		GuildID:  e.guildID,
		RoleID:   e.restrictedRoleID,
		DueAt:    dueAt,
	}

	if err := e.reversals.InsertPendingReversal(ctx, reversal); err != nil {
		return fmt.Errorf("failed to schedule reversal: %w", err)
	}

	go e.runReversalTimer(reversal.ID, dueAt)
	return nil
}

// runReversalTimer - due_at까지 대기 후 해제 실행
func (e *SanctionExecutor) runReversalTimer(reversalID string, dueAt time.Time) {
	time.Sleep(time.Until(dueAt))
	e.executeReversal(reversalID)
}

// executeReversal - 만기된 해제 예약 실행
func (e *SanctionExecutor) executeReversal(reversalID string) {
	ctx := context.Background()

	// 실행 직전에 레코드 재확인 (그사이 취소됐을 수 있음)
	reversal, err := e.reversals.GetPendingReversal(ctx, reversalID)
	if err != nil {
		log.Printf("Failed to load pending reversal %s: %v", reversalID, err)
		return
	}
	if reversal.Status != model.ReversalStatusOpen {
		log.Printf("Skipping reversal %s (status=%s)", reversalID, reversal.Status)
		return
	}

	// 역할 회수 - 이미 다른 경로로 제거됐어도 에러 아님
	if err := e.RevokeRestrictedRole(ctx, reversal.MemberID); err != nil {
		// 레코드는 open으로 남겨 다음 복구 스윕에서 재시도
		log.Printf("Failed to revoke restricted role (member=%s, reversal=%s): %v", reversal.MemberID, reversalID, err)
		return
	}

	done, err := e.reversals.CompletePendingReversal(ctx, reversalID)
	if err != nil {
		log.Printf("Failed to mark reversal done (reversal=%s): %v", reversalID, err)
		return
	}
	if done {
		log.Printf("Temporary exclusion reversed (member=%s, reversal=%s)", reversal.MemberID, reversalID)
	}
}

// ResumePendingReversals - 기동 시 열린 해제 예약 재무장
// 연체된 예약은 time.Until이 음수라 즉시 실행됨
func (e *SanctionExecutor) ResumePendingReversals(ctx context.Context) error {
	open, err := e.reversals.GetOpenReversals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open reversals: %w", err)
	}

	for _, reversal := range open {
		log.Printf("Re-arming pending reversal (member=%s, due_at=%s)", reversal.MemberID, reversal.DueAt.Format(time.RFC3339))
		go e.runReversalTimer(reversal.ID, reversal.DueAt)
	}

	if len(open) > 0 {
		log.Printf("Resumed %d pending reversal(s)", len(open))
	}
	return nil
}

// CancelExclusion - 임시 제외 조기 해제
// 역할을 즉시 회수하고 열린 예약을 cancelled로 전환해 타이머 헛발사를 막음
func (e *SanctionExecutor) CancelExclusion(ctx context.Context, memberID string) (int, error) {
	if err := e.RevokeRestrictedRole(ctx, memberID); err != nil {
		return 0, err
	}

	cancelled, err := e.reversals.CancelOpenReversalsForMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}
