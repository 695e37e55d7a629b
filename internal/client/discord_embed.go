// Discord 알림 임베드 관련 메서드 정의

package client

import (
	"context"
	"fmt"
	"time"
)

// Embed - Discord 메시지 임베드
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

const (
	colorRed  = 0xDC3545 // 알림 채널 (경보)
	colorBlue = 0x17A2B8 // 로그 채널 (감사)
)

// AlertNotice - 알림 채널 임베드에 들어갈 내용
type AlertNotice struct {
	MemberID   string
	MemberName string
	Reason     string
	Sanction   string
	AlertCount int
}

// LogNotice - 로그 채널 임베드에 들어갈 내용
type LogNotice struct {
	MemberID     string
	MemberName   string
	Reason       string
	Sanction     string
	ExecutorID   string
	ExecutorName string
	Automatic    bool
}

// SendAlertNotice - 알림 채널에 공개 임베드 전송
func (c *DiscordClient) SendAlertNotice(ctx context.Context, notice AlertNotice) error {
	name := notice.MemberName
	if name == "" {
		name = notice.MemberID
	}

	embed := Embed{
		Title: "🚨 Member alert",
		Color: colorRed,
		Fields: []EmbedField{
			{Name: "Member", Value: fmt.Sprintf("%s (<@%s>)", name, notice.MemberID), Inline: true},
			{Name: "Alert count", Value: fmt.Sprintf("%d", notice.AlertCount), Inline: true},
			{Name: "Reason", Value: notice.Reason},
			{Name: "Sanction", Value: notice.Sanction},
		},
		Footer:    &EmbedFooter{Text: "modguard"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return c.sendChannelEmbed(ctx, c.alertChannelID, embed)
}

// SendLogNotice - 로그 채널에 운영자 감사 임베드 전송
func (c *DiscordClient) SendLogNotice(ctx context.Context, notice LogNotice) error {
	kind := "Automatic"
	if !notice.Automatic {
		kind = "Manual"
	}

	executor := notice.ExecutorName
	if executor == "" {
		executor = notice.ExecutorID
	}

	name := notice.MemberName
	if name == "" {
		name = notice.MemberID
	}

	embed := Embed{
		Title: "📝 Alert report",
		Color: colorBlue,
		Fields: []EmbedField{
			{Name: "Target member", Value: fmt.Sprintf("%s (<@%s>)", name, notice.MemberID), Inline: true},
			{Name: "Executed by", Value: executor, Inline: true},
			{Name: "Type", Value: kind, Inline: true},
			{Name: "Reason", Value: notice.Reason},
			{Name: "Sanction", Value: notice.Sanction},
		},
		Footer:    &EmbedFooter{Text: "modguard"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return c.sendChannelEmbed(ctx, c.logChannelID, embed)
}

// SendAlertDM - 대상 멤버에게 best-effort DM 전송
func (c *DiscordClient) SendAlertDM(ctx context.Context, memberID, reason, sanction string) error {
	content := fmt.Sprintf(
		"You have received an alert on the server.\nReason: %s\nSanction: %s",
		reason, sanction,
	)
	return c.SendDirectMessage(ctx, memberID, content)
}
