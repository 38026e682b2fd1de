// internal/adapters/out/firestore/mintlog_mirror_fs.go
package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fableforge/internal/application/usecase"
	logdom "fableforge/internal/domain/mintlog"
)

// MintLogMirrorFS mirrors confirmed mint logs and stuck-scan reports into
// Firestore so the ops console can read them without touching Postgres.
// ミラーは best-effort。書き込み失敗でミント処理は止めない(呼び出し側でログのみ)。
type MintLogMirrorFS struct {
	Client *firestore.Client
}

var _ usecase.OpsMirrorPort = (*MintLogMirrorFS)(nil)

func NewMintLogMirrorFS(client *firestore.Client) *MintLogMirrorFS {
	return &MintLogMirrorFS{Client: client}
}

func (m *MintLogMirrorFS) MirrorMintLog(ctx context.Context, e logdom.Entry) error {
	if m.Client == nil {
		return errors.New("firestore client is nil")
	}

	data := map[string]interface{}{
		"avatarId":    e.AvatarID,
		"mintType":    e.MintType,
		"itemKey":     e.ItemKey,
		"status":      string(e.Status),
		"metadataUri": e.MetadataURI,
		"createdAt":   e.CreatedAt,
		"mirroredAt":  time.Now().UTC(),
	}
	if e.AssetID != nil {
		data["assetId"] = *e.AssetID
	}
	if e.Signature != nil {
		data["signature"] = *e.Signature
	}
	if e.ConfirmedAt != nil {
		data["confirmedAt"] = e.ConfirmedAt.UTC()
	}
	if e.ErrorNote != nil {
		data["errorNote"] = *e.ErrorNote
	}

	_, err := m.Client.Collection("mintLogs").Doc(e.ID).Set(ctx, data)
	return err
}

func (m *MintLogMirrorFS) MirrorStuckReport(ctx context.Context, r usecase.StuckReport) error {
	if m.Client == nil {
		return errors.New("firestore client is nil")
	}

	ids := make([]string, 0, len(r.StuckLogs))
	for _, e := range r.StuckLogs {
		ids = append(ids, e.ID)
	}
	keys := make([]string, 0, len(r.StuckReservations))
	for _, i := range r.StuckReservations {
		keys = append(keys, i.AvatarID+"/"+i.ItemName)
	}

	_, err := m.Client.Collection("stuckReports").Doc(r.GeneratedAt.UTC().Format(time.RFC3339)).Set(ctx, map[string]interface{}{
		"generatedAt":       r.GeneratedAt.UTC(),
		"olderThan":         r.OlderThan.String(),
		"stuckMintLogIds":   ids,
		"stuckReservations": keys,
	})
	return err
}

// LastMirrored returns the mirrored copy of a mint log, if present.
// Used by the ops console handler; absence is not an error condition.
func (m *MintLogMirrorFS) LastMirrored(ctx context.Context, id string) (map[string]interface{}, bool, error) {
	if m.Client == nil {
		return nil, false, errors.New("firestore client is nil")
	}

	snap, err := m.Client.Collection("mintLogs").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return snap.Data(), true, nil
}
