// internal/application/usecase/stuck_scan_usecase.go
package usecase

import (
	"context"
	"log"
	"time"

	logdom "fableforge/internal/domain/mintlog"
	sbdom "fableforge/internal/domain/soulbound"
)

// ============================================================
// StuckScanUsecase: 運用スキャン
// ============================================================
//
// 予約とチェーン確定の間でクラッシュすると pending / prepared の行や
// placeholder のままの soulbound 行が残る。設計上これは防がず、定期スキャンで
// 拾って運用が手動で突き合わせる。

type StuckScanUsecase struct {
	MintLogs logdom.Repository
	Items    sbdom.Repository

	Mirror OpsMirrorPort // nil 可
	Mailer OpsMailerPort // nil 可

	// Age is how old a row must be before it counts as stuck.
	Age time.Duration
	Now func() time.Time
}

func NewStuckScanUsecase(logs logdom.Repository, items sbdom.Repository, mirror OpsMirrorPort, mailer OpsMailerPort, age time.Duration) *StuckScanUsecase {
	if age <= 0 {
		age = 30 * time.Minute
	}
	return &StuckScanUsecase{
		MintLogs: logs,
		Items:    items,
		Mirror:   mirror,
		Mailer:   mailer,
		Age:      age,
		Now:      time.Now,
	}
}

// Scan collects stuck rows and, when any exist, mirrors and mails the report.
func (u *StuckScanUsecase) Scan(ctx context.Context) (StuckReport, error) {
	stuckLogs, err := u.MintLogs.ListStuck(ctx, u.Age)
	if err != nil {
		return StuckReport{}, err
	}
	stuckItems, err := u.Items.ListStuckReservations(ctx, u.Age)
	if err != nil {
		return StuckReport{}, err
	}

	report := StuckReport{
		GeneratedAt:       u.Now().UTC(),
		OlderThan:         u.Age,
		StuckLogs:         stuckLogs,
		StuckReservations: stuckItems,
	}

	log.Printf("[stuckscan] found %d mint logs, %d reservations older than %s",
		len(stuckLogs), len(stuckItems), u.Age)

	if len(stuckLogs) == 0 && len(stuckItems) == 0 {
		return report, nil
	}

	if u.Mirror != nil {
		if err := u.Mirror.MirrorStuckReport(ctx, report); err != nil {
			log.Printf("[stuckscan] WARN: mirror report err=%v", err)
		}
	}
	if u.Mailer != nil {
		if err := u.Mailer.SendStuckReport(ctx, report); err != nil {
			log.Printf("[stuckscan] WARN: mail report err=%v", err)
		}
	}

	return report, nil
}
