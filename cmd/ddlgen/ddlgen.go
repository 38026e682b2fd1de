// cmd/ddlgen/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	// ドメインごとに import（アルファベット順）
	"fableforge/internal/domain/mintlog"
	"fableforge/internal/domain/soulbound"
	"fableforge/internal/domain/whitelist"
)

func mustWrite(path string, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		panic(err)
	}
}

func main() {
	outDir := filepath.Join("internal", "infra", "database", "migrations")

	mustWrite(filepath.Join(outDir, "init_campaign_soulbound_items.sql"), soulbound.CampaignSoulboundItemsTableDDL)
	fmt.Println("✅ Generated:", filepath.Join(outDir, "init_campaign_soulbound_items.sql"))

	mustWrite(filepath.Join(outDir, "init_mint_logs.sql"), mintlog.MintLogsTableDDL)
	fmt.Println("✅ Generated:", filepath.Join(outDir, "init_mint_logs.sql"))

	mustWrite(filepath.Join(outDir, "init_soulbound_items.sql"), soulbound.SoulboundItemsTableDDL)
	fmt.Println("✅ Generated:", filepath.Join(outDir, "init_soulbound_items.sql"))

	mustWrite(filepath.Join(outDir, "init_whitelist_entries.sql"), whitelist.WhitelistEntriesTableDDL)
	fmt.Println("✅ Generated:", filepath.Join(outDir, "init_whitelist_entries.sql"))
}
