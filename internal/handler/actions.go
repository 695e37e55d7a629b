// 수동 제재 액션 핸들러
// 알림 임베드 옆에 붙는 "Ban" / "Temporary Exclusion" 버튼에 해당하는 API

package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modguard/backend/internal/service"
)

type ActionHandler struct {
	alertService *service.AlertService
}

func NewActionHandler(alertService *service.AlertService) *ActionHandler {
	return &ActionHandler{
		alertService: alertService,
	}
}

// Ban - 즉시 영구 밴
func (h *ActionHandler) Ban(c *gin.Context) {
	operator := GetAuthUser(c)
	if operator == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	memberID := c.Param("id")
	result, err := h.alertService.ManualBan(c.Request.Context(), *operator, memberID)
	if err != nil {
		writeAlertError(c, err)
		return
	}

	log.Printf("Manual ban applied by %s on member %s", operator.LoginID, memberID)
	c.JSON(http.StatusOK, result)
}

// ExclusionRequest - 임시 제외 시간 선택
// 허용 값은 {1, 6, 12, 24, 48}시간 (메뉴와 동일)
type ExclusionRequest struct {
	Hours int `json:"hours"`
}

// Exclude - 임시 제외 (시간 선택)
func (h *ActionHandler) Exclude(c *gin.Context) {
	operator := GetAuthUser(c)
	if operator == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	memberID := c.Param("id")
	result, err := h.alertService.ManualExclusion(c.Request.Context(), *operator, memberID, req.Hours)
	if err != nil {
		writeAlertError(c, err)
		return
	}

	log.Printf("Manual exclusion applied by %s on member %s (%dh)", operator.LoginID, memberID, req.Hours)
	c.JSON(http.StatusOK, result)
}

// CancelExclusion - 임시 제외 조기 해제 (역할 회수 + 예약 취소)
func (h *ActionHandler) CancelExclusion(c *gin.Context) {
	operator := GetAuthUser(c)
	if operator == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	memberID := c.Param("id")
	result, err := h.alertService.CancelExclusion(c.Request.Context(), memberID)
	if err != nil {
		writeAlertError(c, err)
		return
	}

	log.Printf("Exclusion cancelled by %s for member %s", operator.LoginID, memberID)
	c.JSON(http.StatusOK, result)
}
