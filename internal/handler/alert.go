// 알림 등록/조회 요청을 처리하는 핸들러
//
// 요청 흐름:
//  1. 운영자가 POST /api/v1/alerts로 알림 등록
//  2. JSON 페이로드를 RaiseAlertRequest 구조체로 파싱
//  3. 인증 미들웨어가 올려둔 운영자 정보와 함께 service 레이어로 전달

package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modguard/backend/internal/model"
	"github.com/modguard/backend/internal/service"
)

// Alert 핸들러 구조체 정의
type AlertHandler struct {
	alertService *service.AlertService
}

// Alert 핸들러 객체 생성
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// RaiseAlert - 알림 등록
func (h *AlertHandler) RaiseAlert(c *gin.Context) {
	var req model.RaiseAlertRequest

	// 1. JSON 페이로드 파싱
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Failed to parse raise-alert request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	operator := GetAuthUser(c)
	if operator == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	log.Printf("Alert requested (operator=%s, member_id=%s, member_name=%s)",
		operator.LoginID, req.MemberID, req.MemberName)

	// 2. 서비스 레이어에서 원장 기록/에스컬레이션/집행/통지 처리
	result, err := h.alertService.RaiseAlert(c.Request.Context(), *operator, req)
	if err != nil {
		writeAlertError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAlerts - 전체 알림 목록 조회
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	list, err := h.alertService.ListAlerts(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListMemberAlerts - 특정 멤버의 알림 이력 조회
func (h *AlertHandler) ListMemberAlerts(c *gin.Context) {
	memberID := c.Param("id")
	if memberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "member id required"})
		return
	}

	list, err := h.alertService.ListMemberAlerts(c.Request.Context(), memberID)
	if err != nil {
		log.Printf("Failed to list alerts for member %s: %v", memberID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func writeAlertError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAmbiguousMember):
		c.JSON(http.StatusBadRequest, gin.H{"error": "member name matches multiple members, use member_id"})
	case errors.Is(err, service.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, service.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alert could not be recorded"})
	case errors.Is(err, service.ErrRoleUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "restricted role unavailable"})
	case errors.Is(err, service.ErrRoleMutationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "role mutation failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
