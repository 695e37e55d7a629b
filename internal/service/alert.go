// 알림 처리 비즈니스 로직 정의
// handler에서 받은 알림을 원장에 기록하고 에스컬레이션을 거쳐 제재를 집행
//
// 처리 흐름:
//  1. 입력 검증 (사유 비어있지 않음, 멤버 resolvable)
//  2. 원장에 알림 저장 + 누적 건수 조회 (같은 트랜잭션)
//     - 저장 실패면 여기서 중단: 제재 집행/알림 전송 안 함
//  3. 에스컬레이션: 운영자 수동 제재가 있으면 그것이 우선, 없으면 정책 적용
//  4. 제재 집행 - 실패해도 원장 기록은 롤백하지 않음 (감사 기록 우선)
//  5. 최종 제재를 알림 행에 감사용으로 기록
//  6. 알림 채널/로그 채널 임베드 전송 (실패는 경고로 보고), 대상 멤버 DM (실패 무시)
//  7. 최종 제재와 누적 건수 반환

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/modguard/backend/internal/client"
	"github.com/modguard/backend/internal/model"
)

var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrAmbiguousMember = errors.New("ambiguous member name")
	ErrPersistence     = errors.New("alert ledger write failed")
)

// alertLedger - 원장 DB 인터페이스
type alertLedger interface {
	InsertAlertWithCount(ctx context.Context, memberID, executorID, reason string, sanction *string) (*model.Alert, int, error)
	UpdateAlertSanction(ctx context.Context, alertID int64, sanction string) error
	GetAlertList(ctx context.Context) ([]model.AlertListResponse, error)
	GetAlertsByMember(ctx context.Context, memberID string) ([]model.AlertListResponse, error)
}

// memberDirectory - 멤버 조회용 Discord 인터페이스
type memberDirectory interface {
	GetGuildMember(ctx context.Context, guildID, memberID string) (*client.GuildMember, error)
	SearchGuildMembers(ctx context.Context, guildID, query string) ([]client.GuildMember, error)
}

// alertNotifier - 알림/로그 채널 및 DM 전송 인터페이스
type alertNotifier interface {
	SendAlertNotice(ctx context.Context, notice client.AlertNotice) error
	SendLogNotice(ctx context.Context, notice client.LogNotice) error
	SendAlertDM(ctx context.Context, memberID, reason, sanction string) error
}

// sanctionApplier - 제재 집행기 인터페이스
type sanctionApplier interface {
	Apply(ctx context.Context, memberID string, sanction model.Sanction) error
	CancelExclusion(ctx context.Context, memberID string) (int, error)
}

// AlertService 구조체 정의
type AlertService struct {
	ledger       alertLedger
	directory    memberDirectory
	notifier     alertNotifier
	executor     sanctionApplier
	guildID      string
	ledgerManual bool

	// 멤버별 직렬화: 같은 멤버의 동시 알림이 카운트를 나눠 갖지 않게 함
	mu          sync.Mutex
	memberLocks map[string]*sync.Mutex
}

// AlertService 객체 생성
func NewAlertService(ledger alertLedger, directory memberDirectory, notifier alertNotifier, executor sanctionApplier, guildID string, ledgerManual bool) *AlertService {
	return &AlertService{
		ledger:       ledger,
		directory:    directory,
		notifier:     notifier,
		executor:     executor,
		guildID:      guildID,
		ledgerManual: ledgerManual,
		memberLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *AlertService) lockMember(memberID string) *sync.Mutex {
	s.mu.Lock()
	lock, ok := s.memberLocks[memberID]
	if !ok {
		lock = &sync.Mutex{}
		s.memberLocks[memberID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock
}

// RaiseAlert - 알림 한 건 처리 (원장 기록 → 에스컬레이션 → 집행 → 통지)
func (s *AlertService) RaiseAlert(ctx context.Context, executor model.AuthUser, req model.RaiseAlertRequest) (*model.AlertRaisedResponse, error) {
	// 1. 입력 검증
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	member, err := s.resolveMember(ctx, req.MemberID, req.MemberName)
	if err != nil {
		return nil, err
	}
	memberID := member.User.ID

	lock := s.lockMember(memberID)
	defer lock.Unlock()

	// 2. 원장 기록 + 누적 건수 (하나의 트랜잭션)
	var override *string
	if manual := strings.TrimSpace(req.Sanction); manual != "" {
		override = &manual
	}

	alert, count, err := s.ledger.InsertAlertWithCount(ctx, memberID, executor.DiscordUserID, reason, override)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// 3. 에스컬레이션: 수동 제재가 있으면 정책 결과는 감사 로그에만 남김
	auto := ResolveSanction(count)
	sanction := auto
	if override != nil {
		sanction = model.Sanction{Label: auto.Label, Duration: auto.Duration, Manual: true, Override: *override}
		log.Printf("Manual sanction overrides policy (member=%s, count=%d, policy=%s, manual=%s)",
			memberID, count, auto.String(), *override)
	}

	var warnings []string

	// 4. 제재 집행 - 실패해도 원장 기록은 그대로 둠
	if !sanction.Manual {
		if err := s.executor.Apply(ctx, memberID, sanction); err != nil {
			log.Printf("Failed to execute sanction (member=%s, sanction=%s): %v", memberID, sanction.String(), err)
			warnings = append(warnings, fmt.Sprintf("sanction not enforced: %v", err))
		}
	}

	// 5. 최종 제재를 감사용으로 기록 (수동 제재는 INSERT 때 이미 기록됨)
	if override == nil {
		if err := s.ledger.UpdateAlertSanction(ctx, alert.ID, sanction.String()); err != nil {
			log.Printf("Failed to record sanction on alert %d: %v", alert.ID, err)
		}
	}

	// 6. 통지 - 채널 실패는 경고로 보고, DM 실패는 무시
	memberName := displayName(member)
	if err := s.notifier.SendAlertNotice(ctx, client.AlertNotice{
		MemberID:   memberID,
		MemberName: memberName,
		Reason:     reason,
		Sanction:   sanction.String(),
		AlertCount: count,
	}); err != nil {
		log.Printf("Failed to send alert channel notice: %v", err)
		warnings = append(warnings, "alert channel notice failed")
	}

	if err := s.notifier.SendLogNotice(ctx, client.LogNotice{
		MemberID:     memberID,
		MemberName:   memberName,
		Reason:       reason,
		Sanction:     sanction.String(),
		ExecutorID:   executor.DiscordUserID,
		ExecutorName: executor.LoginID,
		Automatic:    !sanction.Manual,
	}); err != nil {
		log.Printf("Failed to send log channel notice: %v", err)
		warnings = append(warnings, "log channel notice failed")
	}

	if err := s.notifier.SendAlertDM(ctx, memberID, reason, sanction.String()); err != nil {
		log.Printf("Failed to DM member %s (ignored): %v", memberID, err)
	}

	// 7. 결과 반환
	log.Printf("Alert recorded (member=%s, count=%d, sanction=%s, automatic=%v)",
		memberID, count, sanction.String(), !sanction.Manual)

	return &model.AlertRaisedResponse{
		Status:     "recorded",
		AlertID:    alert.ID,
		MemberID:   memberID,
		AlertCount: count,
		Sanction:   sanction.String(),
		Automatic:  !sanction.Manual,
		Warnings:   warnings,
	}, nil
}

// resolveMember - ID 우선, 없으면 표시 이름으로 best-effort 검색
// 이름이 여러 멤버와 일치하면 명시적인 ambiguous 에러
func (s *AlertService) resolveMember(ctx context.Context, memberID, memberName string) (*client.GuildMember, error) {
	if memberID != "" {
		member, err := s.directory.GetGuildMember(ctx, s.guildID, memberID)
		if err != nil {
			if client.IsNotFound(err) {
				return nil, ErrMemberNotFound
			}
			return nil, fmt.Errorf("failed to look up member: %w", err)
		}
		return member, nil
	}

	memberName = strings.TrimSpace(memberName)
	if memberName == "" {
		return nil, fmt.Errorf("%w: member_id or member_name is required", ErrInvalidInput)
	}

	matches, err := s.directory.SearchGuildMembers(ctx, s.guildID, memberName)
	if err != nil {
		return nil, fmt.Errorf("failed to search members: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrMemberNotFound
	case 1:
		return &matches[0], nil
	}

	// 접두 일치가 여럿이어도 정확히 일치하는 이름이 하나뿐이면 그 멤버로 확정
	var exact *client.GuildMember
	for i := range matches {
		if matches[i].User.Username == memberName || matches[i].Nick == memberName {
			if exact != nil {
				return nil, ErrAmbiguousMember
			}
			exact = &matches[i]
		}
	}
	if exact == nil {
		return nil, ErrAmbiguousMember
	}
	return exact, nil
}

func displayName(member *client.GuildMember) string {
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}

// ListAlerts - 전체 알림 목록
func (s *AlertService) ListAlerts(ctx context.Context) ([]model.AlertListResponse, error) {
	return s.ledger.GetAlertList(ctx)
}

// ListMemberAlerts - 특정 멤버의 알림 이력
func (s *AlertService) ListMemberAlerts(ctx context.Context, memberID string) ([]model.AlertListResponse, error) {
	return s.ledger.GetAlertsByMember(ctx, memberID)
}
