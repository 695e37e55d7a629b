// 누적 알림 건수를 자동 제재로 변환하는 에스컬레이션 정책
// 상태 없는 순수 테이블: 임계값 변경은 이 파일만 고치면 됨

package service

import (
	"time"

	"github.com/modguard/backend/internal/model"
)

// ResolveSanction - 방금 기록된 알림까지 포함한 누적 건수 → 자동 제재
//
//	1건  → 경고 (역할 조작 없음)
//	2건  → 1시간 임시 제외
//	3건  → 영구 밴 (역할 부여, 해제 없음)
//	그 외 → 자동 제재 없음 (에러가 아닌 no-op)
func ResolveSanction(count int) model.Sanction {
	switch count {
	case 1:
		return model.Sanction{Label: model.SanctionWarning}
	case 2:
		return model.Sanction{Label: model.SanctionTemporaryExclusion, Duration: time.Hour}
	case 3:
		return model.Sanction{Label: model.SanctionPermanentBan}
	default:
		return model.Sanction{Label: model.SanctionNone}
	}
}
