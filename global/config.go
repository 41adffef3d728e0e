package global

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"BProject/data/database/mgo/mongoutil"
	"BProject/logger"
	mgoSrv "BProject/service/mgo"
	redis "BProject/service/storage/redis"
	ids "BProject/tools/ids"
)

const (
	BackendRedis = "redis"
	BackendNats  = "nats"
)

type AppConfig struct {
	NodeId string // 节点ID（雪花ID的 node 位 + 连接命名）
	Port   int

	QueueBackend string // redis | nats
	BusBackend   string // redis | nats

	Redis redis.Config
	Mongo mongoutil.Config
	Nats  []string
}

var Global = AppConfig{
	NodeId:       "notify_gw-1",
	Port:         8080,
	QueueBackend: BackendRedis,
	BusBackend:   BackendRedis,
	Redis: redis.Config{
		Addr: "127.0.0.1:6379",
		DB:   0,
	},
	Mongo: mongoutil.Config{
		Uri:         "mongodb://localhost:27017",
		Database:    "blogNotify",
		MaxPoolSize: 20,
	},
	Nats: []string{"nats://127.0.0.1:4222"},
}

// LoadEnv 用环境变量覆盖默认配置。
func LoadEnv() {
	if v := os.Getenv("NODE_ID"); v != "" {
		Global.NodeId = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			Global.Port = n
		}
	}
	if v := os.Getenv("NOTIFY_QUEUE"); v != "" {
		Global.QueueBackend = v
	}
	if v := os.Getenv("NOTIFY_BUS"); v != "" {
		Global.BusBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		Global.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		Global.Redis.Password = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		Global.Mongo.Uri = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		Global.Mongo.Database = v
	}
	if v := os.Getenv("NATS_URLS"); v != "" {
		Global.Nats = strings.Split(v, ",")
	}
}

func ConfigIds() {
	logger.Infof("配置id生成 node=%s", Global.NodeId)
	ids.SetNodeID(100)
}

func ConfigRedis() error {
	return redis.InitRedis(Global.Redis)
}

// ConfigMgo 异步拉起 Mongo 管理器；调用方用 mgoSrv.WaitReady 等首次就绪。
func ConfigMgo(ctx context.Context) {
	cfg := Global.Mongo

	// 启动前快速探活：失败只告警，异步管理器自己会退避重连
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := mongoutil.Check(pingCtx, &cfg); err != nil {
		logger.Warnf("mongo preflight failed: %v", err)
	}
	cancel()

	mgoSrv.StartAsync(ctx, &cfg)
}
