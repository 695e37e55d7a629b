// 외부 Discord REST API와 통신하는 클라이언트 정의
// Client 레이어에서만 사용하는 구조체 및 Discord 공통 메서드 정의
//
// 환경변수:
//   - DISCORD_BOT_TOKEN: Discord Bot Token
//   - DISCORD_GUILD_ID: 커뮤니티 길드 ID
//   - ALERT_CHANNEL_ID / LOG_CHANNEL_ID: 알림/감사 임베드를 보낼 채널 ID
//
// 게이트웨이(웹소켓) 대신 REST만 사용하는 이유:
//   - 이 백엔드가 하는 일은 역할 부여/회수와 임베드 전송뿐
//   - 이벤트 수신이 없으므로 상시 연결을 유지할 필요가 없음

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/modguard/backend/internal/config"
)

const defaultBaseURL = "https://discord.com/api/v10"

// DiscordClient 구조체 정의
type DiscordClient struct {
	botToken       string
	guildID        string
	alertChannelID string
	logChannelID   string
	baseURL        string
	httpClient     *http.Client
}

// APIError - Discord API가 거부한 요청의 상태 코드와 메시지
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord API error: status=%d message=%s", e.Status, e.Message)
}

// IsNotFound - 대상(역할, 멤버, 채널)이 없어서 거부됐는지 확인
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// GuildMember - 길드 멤버 (역할 ID 목록 포함)
type GuildMember struct {
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// Role - 길드 역할
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DiscordClient 객체 생성
func NewDiscordClient(cfg config.DiscordConfig) *DiscordClient {
	return &DiscordClient{
		botToken:       cfg.BotToken,
		guildID:        cfg.GuildID,
		alertChannelID: cfg.AlertChannelID,
		logChannelID:   cfg.LogChannelID,
		baseURL:        defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Bot Token과 길드 ID가 모두 설정되어 있는지 체크
func (c *DiscordClient) IsConfigured() bool {
	return c.botToken != "" && c.guildID != ""
}

// Discord API 호출
// out이 nil이 아니면 응답 본문을 JSON으로 디코딩
func (c *DiscordClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bot "+c.botToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call discord: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiResp struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiResp)
		return &APIError{Status: resp.StatusCode, Message: apiResp.Message}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// AddMemberRole - 멤버에게 역할 부여
func (c *DiscordClient) AddMemberRole(ctx context.Context, guildID, memberID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s", guildID, memberID, roleID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// RemoveMemberRole - 멤버의 역할 회수
func (c *DiscordClient) RemoveMemberRole(ctx context.Context, guildID, memberID, roleID string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s/roles/%s", guildID, memberID, roleID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// RoleExists - 길드에 해당 역할이 존재하는지 확인
func (c *DiscordClient) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	var roles []Role
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guilds/%s/roles", guildID), nil, &roles); err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

// GetGuildMember - 멤버 단건 조회 (없으면 404 APIError)
func (c *DiscordClient) GetGuildMember(ctx context.Context, guildID, memberID string) (*GuildMember, error) {
	var member GuildMember
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, memberID)
	if err := c.do(ctx, http.MethodGet, path, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// SearchGuildMembers - 표시 이름으로 멤버 검색 (best-effort 편의 기능)
func (c *DiscordClient) SearchGuildMembers(ctx context.Context, guildID, query string) ([]GuildMember, error) {
	var members []GuildMember
	path := fmt.Sprintf("/guilds/%s/members/search?query=%s&limit=5", guildID, url.QueryEscape(query))
	if err := c.do(ctx, http.MethodGet, path, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// MemberHasRole - 멤버가 특정 역할을 보유했는지 확인 (운영자 권한 체크용)
func (c *DiscordClient) MemberHasRole(ctx context.Context, guildID, memberID, roleID string) (bool, error) {
	member, err := c.GetGuildMember(ctx, guildID, memberID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true, nil
		}
	}
	return false, nil
}

// SendDirectMessage - 멤버에게 DM 전송
// DM 채널을 먼저 열고(있으면 재사용됨) 그 채널로 메시지 전송
func (c *DiscordClient) SendDirectMessage(ctx context.Context, userID, content string) error {
	var dm struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", map[string]string{"recipient_id": userID}, &dm); err != nil {
		return err
	}

	path := fmt.Sprintf("/channels/%s/messages", dm.ID)
	return c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, nil)
}

// sendChannelEmbed - 채널에 임베드 한 건 전송
func (c *DiscordClient) sendChannelEmbed(ctx context.Context, channelID string, embed Embed) error {
	if channelID == "" {
		return fmt.Errorf("channel ID not configured")
	}
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	return c.do(ctx, http.MethodPost, path, map[string]any{"embeds": []Embed{embed}}, nil)
}
