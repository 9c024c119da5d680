package main

import (
	"context"
	"fmt"
	"log"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/api"
	"github.com/qs3c/stake_go_server/internal/api/handler"
	"github.com/qs3c/stake_go_server/internal/pkg/database"
	"github.com/qs3c/stake_go_server/internal/pkg/oss"
	"github.com/qs3c/stake_go_server/internal/pkg/pubsub"
	"github.com/qs3c/stake_go_server/internal/pkg/queue"
	"github.com/qs3c/stake_go_server/internal/pkg/ws"
	"github.com/qs3c/stake_go_server/internal/repository"
	"github.com/qs3c/stake_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.JobQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	// 初始化 WebSocket Hub，订阅钱包事件推送给在线用户
	wsHub := ws.NewHub()
	go func() {
		err := subscriber.Subscribe(context.Background(), func(event *pubsub.WalletEvent) {
			if !wsHub.IsOnline(event.UserID) {
				return
			}
			if err := wsHub.SendToUser(event.UserID, &ws.Message{
				Type: event.Type,
				Data: event,
			}); err != nil {
				log.Printf("Failed to push event to user %d: %v", event.UserID, err)
			}
		})
		if err != nil {
			log.Printf("Wallet event subscription stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	balRepo := repository.NewBalanceRepository(db)
	stakeRepo := repository.NewStakeRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	txRepo := repository.NewTransactionRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(db, userRepo, balRepo, teamRepo, cfg)
	stakingService := service.NewStakingService(db, stakeRepo, balRepo, userRepo, teamRepo, txRepo, publisher, cfg)
	voucherService := service.NewVoucherService(db, voucherRepo, stakeRepo, balRepo, txRepo, jobQueue, publisher, cfg)
	teamService := service.NewTeamService(db, teamRepo, userRepo, stakeRepo, balRepo, txRepo, ossClient, cfg)
	walletService := service.NewWalletService(balRepo, txRepo)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)
	stakingHandler := handler.NewStakingHandler(stakingService)
	voucherHandler := handler.NewVoucherHandler(voucherService)
	teamHandler := handler.NewTeamHandler(teamService)
	walletHandler := handler.NewWalletHandler(walletService)
	adminVoucherHandler := handler.NewAdminVoucherHandler(voucherService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		stakingHandler,
		voucherHandler,
		teamHandler,
		walletHandler,
		adminVoucherHandler,
		websocketHandler,
		userRepo,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
