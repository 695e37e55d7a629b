package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/modguard/backend/internal/client"
	"github.com/modguard/backend/internal/model"
)

type fakeLedger struct {
	alerts  map[string][]model.Alert
	nextID  int64
	failErr error

	recordedSanctions map[int64]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		alerts:            make(map[string][]model.Alert),
		recordedSanctions: make(map[int64]string),
	}
}

func (f *fakeLedger) InsertAlertWithCount(ctx context.Context, memberID, executorID, reason string, sanction *string) (*model.Alert, int, error) {
	if f.failErr != nil {
		return nil, 0, f.failErr
	}
	f.nextID++
	alert := model.Alert{
		ID:         f.nextID,
		MemberID:   memberID,
		ExecutorID: executorID,
		Reason:     reason,
		Sanction:   sanction,
	}
	f.alerts[memberID] = append(f.alerts[memberID], alert)
	return &alert, len(f.alerts[memberID]), nil
}

func (f *fakeLedger) UpdateAlertSanction(ctx context.Context, alertID int64, sanction string) error {
	f.recordedSanctions[alertID] = sanction
	return nil
}

func (f *fakeLedger) GetAlertList(ctx context.Context) ([]model.AlertListResponse, error) {
	return []model.AlertListResponse{}, nil
}

func (f *fakeLedger) GetAlertsByMember(ctx context.Context, memberID string) ([]model.AlertListResponse, error) {
	return []model.AlertListResponse{}, nil
}

type fakeDirectory struct {
	members map[string]client.GuildMember
}

func (f *fakeDirectory) GetGuildMember(ctx context.Context, guildID, memberID string) (*client.GuildMember, error) {
	m, ok := f.members[memberID]
	if !ok {
		return nil, &client.APIError{Status: 404, Message: "Unknown Member"}
	}
	return &m, nil
}

func (f *fakeDirectory) SearchGuildMembers(ctx context.Context, guildID, query string) ([]client.GuildMember, error) {
	var matches []client.GuildMember
	for _, m := range f.members {
		if len(m.User.Username) >= len(query) && m.User.Username[:len(query)] == query {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

type fakeNotifier struct {
	alertNotices []client.AlertNotice
	logNotices   []client.LogNotice
	dms          int

	alertErr error
	logErr   error
	dmErr    error
}

func (f *fakeNotifier) SendAlertNotice(ctx context.Context, notice client.AlertNotice) error {
	if f.alertErr != nil {
		return f.alertErr
	}
	f.alertNotices = append(f.alertNotices, notice)
	return nil
}

func (f *fakeNotifier) SendLogNotice(ctx context.Context, notice client.LogNotice) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.logNotices = append(f.logNotices, notice)
	return nil
}

func (f *fakeNotifier) SendAlertDM(ctx context.Context, memberID, reason, sanction string) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms++
	return nil
}

type fakeApplier struct {
	applied   []model.Sanction
	cancelled []string
	applyErr  error
}

func (f *fakeApplier) Apply(ctx context.Context, memberID string, sanction model.Sanction) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, sanction)
	return nil
}

func (f *fakeApplier) CancelExclusion(ctx context.Context, memberID string) (int, error) {
	f.cancelled = append(f.cancelled, memberID)
	return 1, nil
}

func member(id, username string) client.GuildMember {
	var m client.GuildMember
	m.User.ID = id
	m.User.Username = username
	return m
}

func newTestService(ledger *fakeLedger, directory *fakeDirectory, notifier *fakeNotifier, applier *fakeApplier) *AlertService {
	return NewAlertService(ledger, directory, notifier, applier, "guild-1", false)
}

var operator = model.AuthUser{ID: 1, LoginID: "mod", DiscordUserID: "op-1", CanRaiseAlerts: true}

func TestRaiseAlertFirstAlertIsWarning(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	notifier := &fakeNotifier{}
	applier := &fakeApplier{}
	svc := newTestService(ledger, directory, notifier, applier)

	resp, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberID: "m-1",
		Reason:   "spam",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.AlertCount != 1 {
		t.Errorf("count = %d, want 1", resp.AlertCount)
	}
	if resp.Sanction != "Warning" {
		t.Errorf("sanction = %q, want Warning", resp.Sanction)
	}
	if !resp.Automatic {
		t.Error("expected automatic sanction")
	}
	if len(applier.applied) != 1 || applier.applied[0].Label != model.SanctionWarning {
		t.Errorf("applied = %+v, want one Warning", applier.applied)
	}
	if len(notifier.logNotices) != 1 || !notifier.logNotices[0].Automatic {
		t.Errorf("log notice = %+v, want one automatic entry", notifier.logNotices)
	}
	if notifier.dms != 1 {
		t.Errorf("dms = %d, want 1", notifier.dms)
	}
}

func TestRaiseAlertSecondAlertIsTemporaryExclusion(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	notifier := &fakeNotifier{}
	applier := &fakeApplier{}
	svc := newTestService(ledger, directory, notifier, applier)

	for i := 0; i < 2; i++ {
		if _, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
			MemberID: "m-1",
			Reason:   fmt.Sprintf("offense %d", i+1),
		}); err != nil {
			t.Fatalf("alert %d failed: %v", i+1, err)
		}
	}

	if len(applier.applied) != 2 {
		t.Fatalf("applied %d sanctions, want 2", len(applier.applied))
	}
	second := applier.applied[1]
	if second.Label != model.SanctionTemporaryExclusion {
		t.Errorf("second sanction = %s, want temporary exclusion", second.Label)
	}
	if second.Duration.Hours() != 1 {
		t.Errorf("duration = %s, want 1h", second.Duration)
	}
}

func TestRaiseAlertOverrideWins(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	notifier := &fakeNotifier{}
	applier := &fakeApplier{}
	svc := newTestService(ledger, directory, notifier, applier)

	// 2건 선행 기록
	for i := 0; i < 2; i++ {
		if _, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
			MemberID: "m-1",
			Reason:   "prior",
		}); err != nil {
			t.Fatalf("prior alert failed: %v", err)
		}
	}
	applier.applied = nil

	resp, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberID: "m-1",
		Reason:   "third strike",
		Sanction: "Kick",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.AlertCount != 3 {
		t.Errorf("count = %d, want 3", resp.AlertCount)
	}
	if resp.Sanction != "Kick" {
		t.Errorf("sanction = %q, want Kick (override must beat PermanentBan)", resp.Sanction)
	}
	if resp.Automatic {
		t.Error("override must be reported as manual")
	}
	if len(applier.applied) != 0 {
		t.Errorf("executor called for manual override: %+v", applier.applied)
	}
	if stored := ledger.alerts["m-1"][2].Sanction; stored == nil || *stored != "Kick" {
		t.Errorf("stored sanction = %v, want Kick", stored)
	}
}

func TestRaiseAlertPersistenceFailureAbortsEverything(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failErr = errors.New("connection refused")
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	notifier := &fakeNotifier{}
	applier := &fakeApplier{}
	svc := newTestService(ledger, directory, notifier, applier)

	_, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberID: "m-1",
		Reason:   "spam",
	})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}

	if len(applier.applied) != 0 {
		t.Error("sanction executed despite persistence failure")
	}
	if len(notifier.alertNotices) != 0 || len(notifier.logNotices) != 0 || notifier.dms != 0 {
		t.Error("notifications sent despite persistence failure")
	}
}

func TestRaiseAlertValidation(t *testing.T) {
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	svc := newTestService(newFakeLedger(), directory, &fakeNotifier{}, &fakeApplier{})

	if _, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberID: "m-1",
		Reason:   "   ",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank reason: err = %v, want ErrInvalidInput", err)
	}

	if _, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberID: "nope",
		Reason:   "spam",
	}); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("unknown member: err = %v, want ErrMemberNotFound", err)
	}
}

func TestRaiseAlertResolvesMemberByName(t *testing.T) {
	directory := &fakeDirectory{members: map[string]client.GuildMember{
		"m-1": member("m-1", "alpha"),
		"m-2": member("m-2", "alphabet"),
	}}
	ledger := newFakeLedger()
	svc := newTestService(ledger, directory, &fakeNotifier{}, &fakeApplier{})

	// "alpha"는 접두 일치가 둘이지만 정확 일치는 하나
	resp, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberName: "alpha",
		Reason:     "spam",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.MemberID != "m-1" {
		t.Errorf("resolved member = %s, want m-1", resp.MemberID)
	}

	// "alph"는 정확 일치가 없어 ambiguous
	if _, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{
		MemberName: "alph",
		Reason:     "spam",
	}); !errors.Is(err, ErrAmbiguousMember) {
		t.Errorf("ambiguous name: err = %v, want ErrAmbiguousMember", err)
	}
}

func TestRaiseAlertExecutionFailureKeepsLedgerEntry(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	notifier := &fakeNotifier{}
	applier := &fakeApplier{applyErr: fmt.Errorf("%w: insufficient privilege", ErrRoleMutationFailed)}
	svc := newTestService(ledger, directory, notifier, applier)

	// 2건째라 임시 제외가 걸리지만 집행이 거부됨
	if _, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{MemberID: "m-1", Reason: "prior"}); err != nil {
		t.Fatalf("prior alert failed: %v", err)
	}
	resp, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{MemberID: "m-1", Reason: "again"})
	if err != nil {
		t.Fatalf("execution failure must not fail the operation: %v", err)
	}

	if len(ledger.alerts["m-1"]) != 2 {
		t.Errorf("ledger rows = %d, want 2 (no rollback)", len(ledger.alerts["m-1"]))
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected a warning about failed enforcement")
	}
	if len(notifier.alertNotices) != 2 {
		t.Errorf("alert notices = %d, want 2 (notification still happens)", len(notifier.alertNotices))
	}
}

func TestRaiseAlertChannelFailureIsWarningNotError(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	notifier := &fakeNotifier{alertErr: errors.New("channel gone"), dmErr: errors.New("dms closed")}
	svc := newTestService(ledger, directory, notifier, &fakeApplier{})

	resp, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{MemberID: "m-1", Reason: "spam"})
	if err != nil {
		t.Fatalf("notification failure must not fail the operation: %v", err)
	}

	// 알림 채널 실패는 경고로 보고, DM 실패는 조용히 무시
	if len(resp.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly the alert channel warning", resp.Warnings)
	}
}

func TestManualExclusionRejectsOffMenuHours(t *testing.T) {
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	svc := newTestService(newFakeLedger(), directory, &fakeNotifier{}, &fakeApplier{})

	for _, hours := range []int{0, 2, 3, 47, 49, -1} {
		if _, err := svc.ManualExclusion(context.Background(), operator, "m-1", hours); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("hours=%d: err = %v, want ErrInvalidInput", hours, err)
		}
	}
}

func TestManualExclusionBypassesLedgerByDefault(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-9": member("m-9", "bystander")}}
	applier := &fakeApplier{}
	svc := newTestService(ledger, directory, &fakeNotifier{}, applier)

	resp, err := svc.ManualExclusion(context.Background(), operator, "m-9", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Ledgered {
		t.Error("manual exclusion must not be ledgered by default")
	}
	if len(ledger.alerts["m-9"]) != 0 {
		t.Errorf("ledger rows = %d, want 0", len(ledger.alerts["m-9"]))
	}
	if len(applier.applied) != 1 || applier.applied[0].Duration.Hours() != 6 {
		t.Errorf("applied = %+v, want one 6h exclusion", applier.applied)
	}
}

func TestManualExclusionLedgeredWhenConfigured(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-9": member("m-9", "bystander")}}
	svc := NewAlertService(ledger, directory, &fakeNotifier{}, &fakeApplier{}, "guild-1", true)

	resp, err := svc.ManualExclusion(context.Background(), operator, "m-9", 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Ledgered {
		t.Error("expected ledgered manual exclusion")
	}
	if len(ledger.alerts["m-9"]) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(ledger.alerts["m-9"]))
	}
}

func TestCountIsMonotonic(t *testing.T) {
	ledger := newFakeLedger()
	directory := &fakeDirectory{members: map[string]client.GuildMember{"m-1": member("m-1", "spammer")}}
	svc := newTestService(ledger, directory, &fakeNotifier{}, &fakeApplier{})

	for i := 1; i <= 5; i++ {
		resp, err := svc.RaiseAlert(context.Background(), operator, model.RaiseAlertRequest{MemberID: "m-1", Reason: "r"})
		if err != nil {
			t.Fatalf("alert %d failed: %v", i, err)
		}
		if resp.AlertCount != i {
			t.Fatalf("after %d appends count = %d", i, resp.AlertCount)
		}
	}
}
