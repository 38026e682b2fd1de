// cmd/stuckscan/main.go
//
// 予約とチェーン確定の間で止まったままの行を探し、Firestore へミラーして
// 運用宛にメールする単発ジョブ。Cloud Scheduler などから定期実行する。
package main

import (
	"context"
	"log"
	"time"

	dbadapter "fableforge/internal/adapters/out/db"
	fsadapter "fableforge/internal/adapters/out/firestore"
	"fableforge/internal/adapters/out/mail"
	"fableforge/internal/application/usecase"
	"fableforge/internal/infra/config"
	"fableforge/internal/infra/database"
	firestoreinfra "fableforge/internal/infra/firestore"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := config.Load()

	db, err := database.NewConnection(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		log.Fatalf("[stuckscan] connect postgres: %v", err)
	}
	defer db.Close()

	var mirror usecase.OpsMirrorPort
	if fsw, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile); err != nil {
		log.Printf("[stuckscan] WARN: firestore init failed, mirror disabled: %v", err)
	} else {
		defer fsw.Close()
		mirror = fsadapter.NewMintLogMirrorFS(fsw.Client)
	}

	var mailer usecase.OpsMailerPort
	if cfg.SendGridAPIKey != "" && cfg.OpsMailTo != "" {
		mailer = mail.NewStuckReportMailer(mail.NewSendGridClient(cfg.SendGridAPIKey), cfg.OpsMailFrom, cfg.OpsMailTo)
	}

	scan := usecase.NewStuckScanUsecase(
		dbadapter.NewMintLogRepositoryPG(db.Client),
		dbadapter.NewSoulboundRepositoryPG(db.Client),
		mirror,
		mailer,
		cfg.StuckScanAge,
	)

	report, err := scan.Scan(ctx)
	if err != nil {
		log.Fatalf("[stuckscan] scan failed: %v", err)
	}

	log.Printf("[stuckscan] done: %d mint logs, %d reservations",
		len(report.StuckLogs), len(report.StuckReservations))
}
