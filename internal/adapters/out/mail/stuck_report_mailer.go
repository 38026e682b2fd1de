// internal/adapters/out/mail/stuck_report_mailer.go
package mail

import (
	"context"
	"fmt"
	"strings"

	"fableforge/internal/application/usecase"
)

// EmailClient は実際のメール送信クライアント（SMTP / SendGrid / SES など）を
// 抽象化した下位レベルのインターフェースです。
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// StuckReportMailer は usecase.OpsMailerPort の具象実装で、
// 内部で EmailClient を利用してメール送信を行います。
type StuckReportMailer struct {
	client      EmailClient
	fromAddress string
	toAddress   string
}

var _ usecase.OpsMailerPort = (*StuckReportMailer)(nil)

func NewStuckReportMailer(client EmailClient, fromAddress, toAddress string) *StuckReportMailer {
	return &StuckReportMailer{
		client:      client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
	}
}

// SendStuckReport notifies operators about mint logs and soulbound
// reservations that have not progressed past the scan threshold.
func (m *StuckReportMailer) SendStuckReport(ctx context.Context, r usecase.StuckReport) error {
	subject := fmt.Sprintf("【FableForge】stuck mint scan: %d logs / %d reservations",
		len(r.StuckLogs), len(r.StuckReservations))

	var b strings.Builder
	fmt.Fprintf(&b, "Stuck-item scan at %s (older than %s)\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"), r.OlderThan)

	if len(r.StuckLogs) > 0 {
		b.WriteString("Mint logs not confirmed:\n")
		for _, e := range r.StuckLogs {
			fmt.Fprintf(&b, "  id=%s avatar=%s type=%s item=%s status=%s created=%s\n",
				e.ID, e.AvatarID, e.MintType, e.ItemKey, e.Status, e.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	if len(r.StuckReservations) > 0 {
		b.WriteString("Soulbound reservations still on placeholder:\n")
		for _, i := range r.StuckReservations {
			fmt.Fprintf(&b, "  avatar=%s item=%s created=%s\n",
				i.AvatarID, i.ItemName, i.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}

	b.WriteString("各レコードの状態はレジャー上の実体と突き合わせてから対応してください。\n")

	return m.client.Send(ctx, m.fromAddress, m.toAddress, subject, b.String())
}
