package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/stake_go_server/config"
	"github.com/qs3c/stake_go_server/internal/api/handler"
	"github.com/qs3c/stake_go_server/internal/api/middleware"
	"github.com/qs3c/stake_go_server/internal/repository"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	stakingHandler      *handler.StakingHandler
	voucherHandler      *handler.VoucherHandler
	teamHandler         *handler.TeamHandler
	walletHandler       *handler.WalletHandler
	adminVoucherHandler *handler.AdminVoucherHandler
	websocketHandler    *handler.WebSocketHandler
	userRepo            *repository.UserRepository
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	stakingHandler *handler.StakingHandler,
	voucherHandler *handler.VoucherHandler,
	teamHandler *handler.TeamHandler,
	walletHandler *handler.WalletHandler,
	adminVoucherHandler *handler.AdminVoucherHandler,
	websocketHandler *handler.WebSocketHandler,
	userRepo *repository.UserRepository,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		userHandler:         userHandler,
		stakingHandler:      stakingHandler,
		voucherHandler:      voucherHandler,
		teamHandler:         teamHandler,
		walletHandler:       walletHandler,
		adminVoucherHandler: adminVoucherHandler,
		websocketHandler:    websocketHandler,
		userRepo:            userRepo,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 公开接口 - 套餐目录
		api.GET("/staking/packages", r.stakingHandler.GetPackages)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			authenticated.GET("/user/profile", r.userHandler.GetProfile)

			// 质押
			staking := authenticated.Group("/staking")
			{
				staking.GET("/entries", r.stakingHandler.ListEntries)
				staking.POST("/entries", r.stakingHandler.Create)
				staking.POST("/entries/:id/unstake", r.stakingHandler.RequestUnstake)
				staking.POST("/entries/:id/unstake/complete", r.stakingHandler.CompleteUnstake)
			}

			// 代金券
			vouchers := authenticated.Group("/vouchers")
			{
				vouchers.GET("", r.voucherHandler.List)
				vouchers.POST("/redeem", r.voucherHandler.Redeem)
				vouchers.POST("/:id/stake", r.voucherHandler.UseForStake)
			}

			// 团队
			team := authenticated.Group("/team")
			{
				team.GET("/members", r.teamHandler.Members)
				team.GET("/stats", r.teamHandler.Stats)
				team.GET("/sphere-images", r.teamHandler.SphereImages)
				team.GET("/promotion", r.teamHandler.Promotion)
				team.POST("/promotion/claim", r.teamHandler.ClaimPromotion)
			}

			// 钱包
			wallet := authenticated.Group("/wallet")
			{
				wallet.GET("/balance", r.walletHandler.Balance)
				wallet.GET("/transactions", r.walletHandler.Transactions)
			}
		}

		// 管理接口
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.AdminOnly(r.userRepo))
		{
			admin.POST("/vouchers", r.adminVoucherHandler.CreateBatch)
			admin.GET("/vouchers/batches", r.adminVoucherHandler.ListBatches)
		}
	}

	return engine
}
