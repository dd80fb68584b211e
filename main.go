package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "SocialProject/global/config"
	"SocialProject/logger"
	"SocialProject/metrics"
	"SocialProject/module/social"
	"SocialProject/module/social/repo"
	"SocialProject/service/gateway"
	"SocialProject/service/gateway/handlers"
	"SocialProject/service/notify"
	"SocialProject/service/ranking"
	redissvc "SocialProject/service/storage/redis"
	"SocialProject/tools/ids"
	"SocialProject/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if lvl, lerr := zapcore.ParseLevel(cfg.LogLevel); lerr == nil {
		logger.Setup(lvl)
	}
	defer logger.Sync()

	ids.SetNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== 基础设施 =====

	if err := redissvc.Init(redissvc.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}); err != nil {
		logger.Errorf("init redis: %v", err)
		os.Exit(1)
	}
	defer func() { _ = redissvc.Close() }()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Errorf("init postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	mctx, mcancel := context.WithTimeout(ctx, 5*time.Second)
	mcli, err := mongo.Connect(mctx, options.Client().ApplyURI(cfg.MongoURI))
	mcancel()
	if err != nil {
		logger.Errorf("init mongo: %v", err)
		os.Exit(1)
	}
	defer func() { _ = mcli.Disconnect(context.Background()) }()

	// ===== 组件装配 =====

	socialRepo := repo.NewSocialRepo(pool)
	msgStore := repo.NewMessageStore(mcli.Database(cfg.MongoDB))

	mgr := gateway.NewConnManager(gateway.ManagerConf{
		UnauthTTL:  cfg.WsUnauthTTL,
		AuthTTL:    cfg.WsAuthTTL,
		SweepEvery: cfg.WsSweep,
	})
	defer mgr.Close()

	wsServer := gateway.NewServer(mgr)
	wsServer.Disp().Register(handlers.NewAuthHandler())
	wsServer.Disp().Register(handlers.NewPingHandler())

	var relay *notify.Relay
	if cfg.NatsURL != "" {
		relay, err = notify.NewRelay(cfg.NatsURL)
		if err != nil {
			// 跨节点转发是锦上添花；连不上降级为单节点
			logger.Warnf("nats unavailable, relay disabled: %v", err)
			relay = nil
		} else {
			defer relay.Close()
		}
	}

	dispatcher := notify.NewDispatcher(mgr, relay)
	if relay != nil {
		if err := relay.Start(dispatcher); err != nil {
			logger.Warnf("relay subscribe failed: %v", err)
		}
	}

	bridge := notify.NewBridge(socialRepo, msgStore, dispatcher)

	store := ranking.NewRedisStore(redissvc.Get())
	coord := ranking.NewCoordinator(store, socialRepo)
	sweeper := ranking.NewSweeper(coord, cfg.SweepInterval)
	safe.Go(func() { sweeper.Run(ctx) })

	// ===== HTTP =====

	r := gin.Default()
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := social.NewHandler(coord, socialRepo, msgStore, mgr, bridge)
	h.Register(r, wsServer)

	logger.Infof("listening on %s node=%d", cfg.HTTPAddr, cfg.NodeID)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Errorf("http server: %v", err)
		os.Exit(1)
	}
}
