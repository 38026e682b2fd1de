// internal/platform/di/container.go
package di

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	httpin "fableforge/internal/adapters/in/http"
	"fableforge/internal/adapters/in/http/handler"
	"fableforge/internal/adapters/in/http/middleware"
	dbadapter "fableforge/internal/adapters/out/db"
	dbcommon "fableforge/internal/adapters/out/db/common"
	fsadapter "fableforge/internal/adapters/out/firestore"
	gcsadapter "fableforge/internal/adapters/out/gcs"
	"fableforge/internal/adapters/out/mail"
	"fableforge/internal/adapters/out/memory"
	"fableforge/internal/application/usecase"
	"fableforge/internal/infra/arweave"
	"fableforge/internal/infra/config"
	"fableforge/internal/infra/database"
	firestoreinfra "fableforge/internal/infra/firestore"
	"fableforge/internal/infra/solana"
)

// Container は main.go から使う依存オブジェクトの束。
// 目的は main.go を極限まで薄くすること。
type Container struct {
	Config *config.Config

	MintUC      *usecase.MintUsecase
	UserMintUC  *usecase.UserMintUsecase
	SoulboundUC *usecase.SoulboundUsecase
	TransferUC  *usecase.TransferUsecase
	StuckScanUC *usecase.StuckScanUsecase

	FirebaseAuth *middleware.FirebaseAuthClient
	TokenStore   *memory.TransferTokenStore

	db        *database.DB
	cleanupFn []func()
}

// Close は Cloud Run 終了時などに呼んで安全にリソースを閉じる。
func (c *Container) Close() {
	for _, fn := range c.cleanupFn {
		fn()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
}

// NewContainer は設定を読み、外部リソース → リポジトリ → ユースケースの順に
// 依存を組み立てて返す。
func NewContainer(ctx context.Context) (*Container, error) {
	cfg := config.Load()
	c := &Container{Config: cfg}

	// ------------------------------------------------------------
	// 1. 外部リソース (DB / Firebase / Firestore / GCS / Solana)
	// ------------------------------------------------------------

	db, err := database.NewConnection(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.db = db

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID})
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	fbAuth, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	c.FirebaseAuth = fbAuth

	// Firestore ミラーは任意。初期化に失敗してもミラー無しで続行する。
	var mirror usecase.OpsMirrorPort
	if fsw, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile); err != nil {
		log.Printf("[di] WARN: firestore init failed, mirror disabled: %v", err)
	} else {
		mirror = fsadapter.NewMintLogMirrorFS(fsw.Client)
		c.cleanupFn = append(c.cleanupFn, func() { _ = fsw.Close() })
	}

	uploader, err := buildUploader(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	authority, err := solana.LoadMintAuthority(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mint authority: %w", err)
	}

	rpc := solana.NewJSONRPCClient(cfg.SolanaRPCEndpoint)
	submitter := solana.NewSubmitter(rpc, cfg.SolanaCluster)
	policy := solana.PolicyForCluster(cfg.SolanaCluster)

	minter, err := solana.NewTreeMinter(rpc, submitter, authority, cfg.MerkleTreeAddress, policy)
	if err != nil {
		return nil, fmt.Errorf("init tree minter: %w", err)
	}
	freezer, err := solana.NewFreezeCoordinator(rpc, submitter, authority, cfg.MerkleTreeAddress, policy)
	if err != nil {
		return nil, fmt.Errorf("init freeze coordinator: %w", err)
	}
	transferBuilder, err := solana.NewTransferBuilder(rpc, authority)
	if err != nil {
		return nil, fmt.Errorf("init transfer builder: %w", err)
	}
	assetReader := solana.NewAssetReader(rpc)

	// ------------------------------------------------------------
	// 2. リポジトリ / ストア
	// ------------------------------------------------------------

	txm := dbcommon.NewTxManager(db.Client)
	wlRepo := dbadapter.NewWhitelistRepositoryPG(db.Client)
	logRepo := dbadapter.NewMintLogRepositoryPG(db.Client)
	sbRepo := dbadapter.NewSoulboundRepositoryPG(db.Client)

	c.TokenStore = memory.NewTransferTokenStore(nil)

	var mailer usecase.OpsMailerPort
	if cfg.SendGridAPIKey != "" && cfg.OpsMailTo != "" {
		mailer = mail.NewStuckReportMailer(mail.NewSendGridClient(cfg.SendGridAPIKey), cfg.OpsMailFrom, cfg.OpsMailTo)
	} else {
		log.Printf("[di] ops mail disabled (SENDGRID_API_KEY / OPS_MAIL_TO not set)")
	}

	// ------------------------------------------------------------
	// 3. ユースケース
	// ------------------------------------------------------------

	c.MintUC = usecase.NewMintUsecase(wlRepo, logRepo, txm, minter, uploader, mirror, cfg.PreparedFreshnessWindow)
	c.UserMintUC = usecase.NewUserMintUsecase(c.MintUC, minter, minter)
	c.SoulboundUC = usecase.NewSoulboundUsecase(sbRepo, c.MintUC, freezer)
	c.TransferUC = usecase.NewTransferUsecase(transferBuilder, submitter, assetReader, c.TokenStore, cfg.TransferTokenTTL)
	c.StuckScanUC = usecase.NewStuckScanUsecase(logRepo, sbRepo, mirror, mailer, cfg.StuckScanAge)

	return c, nil
}

// RouterDeps assembles the HTTP wiring for httpin.NewRouter.
func (c *Container) RouterDeps() httpin.RouterDeps {
	return httpin.RouterDeps{
		Auth:      &middleware.AuthMiddleware{FirebaseAuth: c.FirebaseAuth},
		Mint:      handler.NewMintHandler(c.MintUC, c.UserMintUC),
		Soulbound: handler.NewSoulboundHandler(c.SoulboundUC),
		Transfer:  handler.NewTransferHandler(c.TransferUC),

		AllowedOrigin: c.Config.CORSAllowedOrigin,
	}
}

// buildUploader selects the metadata uploader: Irys/Arweave when configured,
// otherwise GCS.
func buildUploader(ctx context.Context, cfg *config.Config, c *Container) (usecase.MetadataUploader, error) {
	if cfg.ArweaveBaseURL != "" {
		log.Printf("[di] metadata uploader = arweave (%s)", cfg.ArweaveBaseURL)
		return arweave.NewHTTPUploader(cfg.ArweaveBaseURL, cfg.ArweaveAPIKey), nil
	}

	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("no metadata uploader configured (set ARWEAVE_BASE_URL or GCS_BUCKET)")
	}

	var opts []option.ClientOption
	if cfg.FirestoreCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentialsFile))
	}
	gcsClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	c.cleanupFn = append(c.cleanupFn, func() { _ = gcsClient.Close() })

	log.Printf("[di] metadata uploader = gcs (bucket=%s)", cfg.GCSBucket)
	return gcsadapter.NewMetadataUploaderGCS(gcsClient, cfg.GCSBucket), nil
}
