// 수동 제재 경로 정의
// 운영자가 특정 멤버에게 직접 거는 밴/임시 제외 - 에스컬레이션을 거치지 않고
// 집행기로 바로 들어가며, 원장 기록 여부는 LEDGER_MANUAL_ACTIONS 설정을 따름

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/modguard/backend/internal/client"
	"github.com/modguard/backend/internal/model"
)

// ManualBan - 즉시 영구 밴 (차단 역할 부여, 해제 없음)
func (s *AlertService) ManualBan(ctx context.Context, executor model.AuthUser, memberID string) (*model.ManualSanctionResponse, error) {
	member, err := s.resolveMember(ctx, memberID, "")
	if err != nil {
		return nil, err
	}

	sanction := model.Sanction{Label: model.SanctionPermanentBan, Manual: true}
	if err := s.executor.Apply(ctx, member.User.ID, sanction); err != nil {
		return nil, err
	}

	return s.finishManualSanction(ctx, executor, member, sanction)
}

// ManualExclusion - 메뉴에서 고른 시간만큼의 임시 제외
// 자동 2건째 제재와 완전히 같은 apply/해제 메커니즘을 사용, 기간만 파라미터화
func (s *AlertService) ManualExclusion(ctx context.Context, executor model.AuthUser, memberID string, hours int) (*model.ManualSanctionResponse, error) {
	if !model.IsAllowedExclusionHours(hours) {
		return nil, fmt.Errorf("%w: exclusion hours must be one of %v", ErrInvalidInput, model.ManualExclusionHours)
	}

	member, err := s.resolveMember(ctx, memberID, "")
	if err != nil {
		return nil, err
	}

	sanction := model.Sanction{
		Label:    model.SanctionTemporaryExclusion,
		Duration: time.Duration(hours) * time.Hour,
		Manual:   true,
	}
	if err := s.executor.Apply(ctx, member.User.ID, sanction); err != nil {
		return nil, err
	}

	return s.finishManualSanction(ctx, executor, member, sanction)
}

// CancelExclusion - 임시 제외 조기 해제 (역할 회수 + 열린 해제 예약 취소)
func (s *AlertService) CancelExclusion(ctx context.Context, memberID string) (*model.ExclusionCancelledResponse, error) {
	cancelled, err := s.executor.CancelExclusion(ctx, memberID)
	if err != nil {
		return nil, err
	}

	log.Printf("Exclusion cancelled early (member=%s, reversals_cancelled=%d)", memberID, cancelled)
	return &model.ExclusionCancelledResponse{
		Status:    "cancelled",
		MemberID:  memberID,
		Cancelled: cancelled,
	}, nil
}

// finishManualSanction - 수동 제재의 공통 마무리: 선택적 원장 기록, 감사 로그, DM
func (s *AlertService) finishManualSanction(ctx context.Context, executor model.AuthUser, member *client.GuildMember, sanction model.Sanction) (*model.ManualSanctionResponse, error) {
	memberID := member.User.ID
	label := manualLabel(sanction)
	reason := "Manual action by operator"

	// 원장 기록은 설정으로 켠 경우에만 (기본은 수동 제재 비기록)
	ledgered := false
	if s.ledgerManual {
		if _, _, err := s.ledger.InsertAlertWithCount(ctx, memberID, executor.DiscordUserID, reason, &label); err != nil {
			log.Printf("Failed to ledger manual sanction (member=%s): %v", memberID, err)
		} else {
			ledgered = true
		}
	}

	if err := s.notifier.SendLogNotice(ctx, client.LogNotice{
		MemberID:     memberID,
		MemberName:   displayName(member),
		Reason:       reason,
		Sanction:     label,
		ExecutorID:   executor.DiscordUserID,
		ExecutorName: executor.LoginID,
		Automatic:    false,
	}); err != nil {
		log.Printf("Failed to send log channel notice for manual sanction: %v", err)
	}

	if err := s.notifier.SendAlertDM(ctx, memberID, reason, label); err != nil {
		log.Printf("Failed to DM member %s (ignored): %v", memberID, err)
	}

	log.Printf("Manual sanction applied (member=%s, sanction=%s, ledgered=%v)", memberID, label, ledgered)
	return &model.ManualSanctionResponse{
		Status:   "applied",
		MemberID: memberID,
		Sanction: label,
		Ledgered: ledgered,
	}, nil
}

func manualLabel(sanction model.Sanction) string {
	// Manual 플래그만 세운 제재의 표시 문자열은 라벨 기준으로 만든다
	return model.Sanction{Label: sanction.Label, Duration: sanction.Duration}.String()
}
