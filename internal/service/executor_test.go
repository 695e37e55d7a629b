package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/modguard/backend/internal/client"
	"github.com/modguard/backend/internal/model"
)

type fakeRoles struct {
	mu         sync.Mutex
	granted    map[string]int
	revoked    map[string]int
	roleExists bool
	removeErr  error
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		granted:    make(map[string]int),
		revoked:    make(map[string]int),
		roleExists: true,
	}
}

func (f *fakeRoles) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	return f.roleExists, nil
}

func (f *fakeRoles) AddMemberRole(ctx context.Context, guildID, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[memberID]++
	return nil
}

func (f *fakeRoles) RemoveMemberRole(ctx context.Context, guildID, memberID, roleID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[memberID]++
	return nil
}

func (f *fakeRoles) grantedCount(memberID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted[memberID]
}

func (f *fakeRoles) revokedCount(memberID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[memberID]
}

type fakeReversals struct {
	mu      sync.Mutex
	records map[string]*model.PendingReversal
}

func newFakeReversals() *fakeReversals {
	return &fakeReversals{records: make(map[string]*model.PendingReversal)}
}

func (f *fakeReversals) InsertPendingReversal(ctx context.Context, r model.PendingReversal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Status = model.ReversalStatusOpen
	f.records[r.ID] = &r
	return nil
}

func (f *fakeReversals) GetPendingReversal(ctx context.Context, id string) (*model.PendingReversal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.records[id]
	return &copied, nil
}

func (f *fakeReversals) GetOpenReversals(ctx context.Context) ([]model.PendingReversal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []model.PendingReversal
	for _, r := range f.records {
		if r.Status == model.ReversalStatusOpen {
			open = append(open, *r)
		}
	}
	return open, nil
}

func (f *fakeReversals) CompletePendingReversal(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.records[id]
	if r.Status != model.ReversalStatusOpen {
		return false, nil
	}
	r.Status = model.ReversalStatusDone
	return true, nil
}

func (f *fakeReversals) CancelOpenReversalsForMember(ctx context.Context, memberID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cancelled := 0
	for _, r := range f.records {
		if r.MemberID == memberID && r.Status == model.ReversalStatusOpen {
			r.Status = model.ReversalStatusCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

func (f *fakeReversals) statuses() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.records))
	for id, r := range f.records {
		out[id] = r.Status
	}
	return out
}

// waitFor - 타이머 기반 동작 검증용 폴링 (flaky sleep 대신)
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestApplyWarningDoesNotTouchRoles(t *testing.T) {
	roles := newFakeRoles()
	exec := NewSanctionExecutor(roles, newFakeReversals(), "guild-1", "role-banned")

	if err := exec.Apply(context.Background(), "m-1", model.Sanction{Label: model.SanctionWarning}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roles.grantedCount("m-1") != 0 || roles.revokedCount("m-1") != 0 {
		t.Error("warning must not mutate roles")
	}
}

func TestApplyPermanentBanGrantsWithoutReversal(t *testing.T) {
	roles := newFakeRoles()
	reversals := newFakeReversals()
	exec := NewSanctionExecutor(roles, reversals, "guild-1", "role-banned")

	if err := exec.Apply(context.Background(), "m-1", model.Sanction{Label: model.SanctionPermanentBan}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roles.grantedCount("m-1") != 1 {
		t.Errorf("granted = %d, want 1", roles.grantedCount("m-1"))
	}
	if len(reversals.statuses()) != 0 {
		t.Error("permanent ban must not schedule a reversal")
	}
}

func TestApplyTemporaryExclusionGrantsThenReverses(t *testing.T) {
	roles := newFakeRoles()
	reversals := newFakeReversals()
	exec := NewSanctionExecutor(roles, reversals, "guild-1", "role-banned")

	err := exec.Apply(context.Background(), "m-1", model.Sanction{
		Label:    model.SanctionTemporaryExclusion,
		Duration: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 즉시 반환 + 역할 부여 확인
	if roles.grantedCount("m-1") != 1 {
		t.Fatalf("granted = %d, want 1", roles.grantedCount("m-1"))
	}

	// 만기 후 자동 해제
	if !waitFor(t, 2*time.Second, func() bool { return roles.revokedCount("m-1") == 1 }) {
		t.Fatal("restricted role was not revoked after the duration elapsed")
	}
	done := waitFor(t, 2*time.Second, func() bool {
		for _, status := range reversals.statuses() {
			if status != model.ReversalStatusDone {
				return false
			}
		}
		return true
	})
	if !done {
		t.Errorf("reversal statuses = %v, want all done", reversals.statuses())
	}
}

func TestApplyFailsWhenRoleUnavailable(t *testing.T) {
	roles := newFakeRoles()
	roles.roleExists = false
	exec := NewSanctionExecutor(roles, newFakeReversals(), "guild-1", "role-banned")

	err := exec.Apply(context.Background(), "m-1", model.Sanction{Label: model.SanctionPermanentBan})
	if err == nil {
		t.Fatal("expected ErrRoleUnavailable")
	}
	if roles.grantedCount("m-1") != 0 {
		t.Error("grant attempted despite missing role")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	roles := newFakeRoles()
	roles.removeErr = &client.APIError{Status: 404, Message: "Unknown Member"}
	exec := NewSanctionExecutor(roles, newFakeReversals(), "guild-1", "role-banned")

	// 이미 역할이 없어서 404가 와도 에러 아님
	if err := exec.RevokeRestrictedRole(context.Background(), "m-1"); err != nil {
		t.Fatalf("revoking an absent role must not fail: %v", err)
	}
}

func TestCancelExclusionSkipsPendingTimer(t *testing.T) {
	roles := newFakeRoles()
	reversals := newFakeReversals()
	exec := NewSanctionExecutor(roles, reversals, "guild-1", "role-banned")

	err := exec.Apply(context.Background(), "m-1", model.Sanction{
		Label:    model.SanctionTemporaryExclusion,
		Duration: 60 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := exec.CancelExclusion(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled != 1 {
		t.Errorf("cancelled = %d, want 1", cancelled)
	}

	// 조기 해제에서 한 번 회수됨
	if roles.revokedCount("m-1") != 1 {
		t.Fatalf("revoked = %d, want 1", roles.revokedCount("m-1"))
	}

	// 타이머가 만기돼도 취소된 예약은 실행하지 않음
	time.Sleep(200 * time.Millisecond)
	if roles.revokedCount("m-1") != 1 {
		t.Errorf("cancelled timer still fired: revoked = %d", roles.revokedCount("m-1"))
	}
	for _, status := range reversals.statuses() {
		if status != model.ReversalStatusCancelled {
			t.Errorf("reversal status = %s, want cancelled", status)
		}
	}
}

func TestResumePendingReversalsFiresOverdue(t *testing.T) {
	roles := newFakeRoles()
	reversals := newFakeReversals()

	// 프로세스 재시작 전에 만들어졌고 이미 연체된 예약
	_ = reversals.InsertPendingReversal(context.Background(), model.PendingReversal{
		ID:       "rev-1",
		MemberID: "m-1",
		GuildID:  "guild-1",
		RoleID:   "role-banned",
		DueAt:    time.Now().Add(-time.Hour),
	})

	exec := NewSanctionExecutor(roles, reversals, "guild-1", "role-banned")
	if err := exec.ResumePendingReversals(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return roles.revokedCount("m-1") == 1 }) {
		t.Fatal("overdue reversal was not fired on resume")
	}
}
