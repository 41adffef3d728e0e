package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BProject/global"
	"BProject/logger"
	blog "BProject/module/blog"
	blogservice "BProject/module/blog/service"
	notify "BProject/module/notify"
	notifyservice "BProject/module/notify/service"
	"BProject/module/notify/queue"
	"BProject/service/bus"
	"BProject/service/gateway"
	mgoSrv "BProject/service/mgo"
	redis "BProject/service/storage/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	global.LoadEnv()
	global.ConfigIds()

	if err := global.ConfigRedis(); err != nil {
		log.Fatalf("init redis failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	global.ConfigMgo(ctx)
	if err := mgoSrv.WaitReady(ctx, mgoSrv.Manager()); err != nil {
		log.Fatalf("wait mongo ready failed: %v", err)
	}
	db := mgoSrv.GetDB()

	// 1) 事件队列（博客服务写入、worker 消费）
	var q queue.Queue
	switch global.Global.QueueBackend {
	case global.BackendNats:
		nq, err := queue.NewNatsQueue(global.Global.Nats, global.Global.NodeId+"-queue")
		if err != nil {
			log.Fatalf("init nats queue failed: %v", err)
		}
		q = nq
	default:
		q = queue.NewRedisQueue(redis.GetRedis())
	}

	// 2) 广播总线：发布与订阅各一条连接，实例级单例
	var b bus.Bus
	switch global.Global.BusBackend {
	case global.BackendNats:
		nb, err := bus.NewNatsBus(global.Global.Nats, global.Global.NodeId+"-bus")
		if err != nil {
			log.Fatalf("init nats bus failed: %v", err)
		}
		b = nb
	default:
		b = bus.NewRedisBus(redis.GetRedis(), redis.NewSubscriberClient(global.Global.Redis))
	}

	// 3) 本地扇出：总线订阅端 → 本实例所有在线 listener
	fan := gateway.NewFanout(2, 1024)
	if err := b.Subscribe(ctx, fan.Publish); err != nil {
		log.Fatalf("bus subscribe failed: %v", err)
	}

	// 4) 通知服务 + worker 循环
	notifySvc := notifyservice.NewNotifyService(db)
	worker := notify.NewWorker(q, notifySvc.Markers(), notifySvc.Markers(), b)
	worker.Start(ctx)

	blogSvc := blogservice.NewBlogService(db, q)

	// 5) HTTP + WebSocket
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		if _, ok := mgoSrv.TryGetDB(); !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"mongo":  fmt.Sprint(mgoSrv.Err()),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	notify.NewHandler(notifySvc, fan).Register(r)
	blog.NewHandler(blogSvc).Register(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", global.Global.Port),
		Handler: r,
	}
	go func() {
		logger.Infof("[main] listening on %s node=%s queue=%s bus=%s",
			srv.Addr, global.Global.NodeId, global.Global.QueueBackend, global.Global.BusBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	// 6) 优雅退出：先停 worker（在途事件跑完），再关总线/队列/存储
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Infof("[main] shutting down")

	worker.Stop()
	_ = b.Close()
	_ = q.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	_ = redis.CloseRedis()
	cancel()
	logger.Sync()
}
