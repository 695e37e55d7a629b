package model

import (
	"fmt"
	"time"
)

// SanctionLabel - 에스컬레이션 정책이 결정하는 제재 단계
type SanctionLabel string

const (
	SanctionWarning            SanctionLabel = "warning"
	SanctionTemporaryExclusion SanctionLabel = "temporary_exclusion"
	SanctionPermanentBan       SanctionLabel = "permanent_ban"
	SanctionNone               SanctionLabel = "no_automatic_sanction"
)

// Sanction - 실행할 제재
// Duration은 temporary_exclusion일 때만 유효
type Sanction struct {
	Label    SanctionLabel
	Duration time.Duration

	// Manual: 운영자가 직접 지정한 제재면 true (자동 에스컬레이션이면 false)
	Manual bool

	// Override: 운영자가 지정한 자유 텍스트 제재 (Manual=true일 때 기록용)
	Override string
}

// String - 감사 기록 및 임베드 표시에 쓰는 제재 문자열
func (s Sanction) String() string {
	if s.Manual && s.Override != "" {
		return s.Override
	}
	switch s.Label {
	case SanctionWarning:
		return "Warning"
	case SanctionTemporaryExclusion:
		return fmt.Sprintf("Temporary exclusion (%s)", formatHours(s.Duration))
	case SanctionPermanentBan:
		return "Permanent ban (role added)"
	default:
		return "No automatic sanction"
	}
}

func formatHours(d time.Duration) string {
	hours := d.Hours()
	if hours == float64(int64(hours)) {
		return fmt.Sprintf("%dh", int64(hours))
	}
	return d.String()
}

// ManualExclusionHours - 수동 임시 제외 메뉴에서 고를 수 있는 시간
var ManualExclusionHours = []int{1, 6, 12, 24, 48}

// IsAllowedExclusionHours - 수동 임시 제외 시간이 메뉴에 있는 값인지 확인
func IsAllowedExclusionHours(hours int) bool {
	for _, h := range ManualExclusionHours {
		if h == hours {
			return true
		}
	}
	return false
}
