package model

import (
	"time"

	"BProject/data/database"
	mgo "BProject/service/mgo"
	"BProject/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

var _ database.Table = (*NotificationMarker)(nil)

// NotificationMarker 持久化的通知标记行：一篇已发布博客对应一行，
// version 由 counter 集合原子发号，插入后不再更新/删除。
// blog_create_time 冗余存一份，注册水位过滤可以不做关联直接查本表。
type NotificationMarker struct {
	Version        int64     `bson:"version"` // 全局单调递增（唯一键）
	BlogID         string    `bson:"blog_id"`
	BlogCreateTime time.Time `bson:"blog_create_time"`
	CreateTime     time.Time `bson:"create_time"`
}

func (m *NotificationMarker) GetTableName() string {
	return "notification_marker"
}

func (m *NotificationMarker) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

// VersionCounter counter 集合里的单行计数器。
// 版本号只能走存储端 $inc 发号，禁止读最大值加一。
type VersionCounter struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

const CounterMarkerVersion = "marker_version"

func (c *VersionCounter) GetTableName() string {
	return "counter"
}

// ---- 客户端负载（总线线格式 = API 返回格式） ----

type AuthorRef struct {
	ID       string `bson:"id" json:"id"`
	Username string `bson:"username" json:"username"`
}

type BlogRef struct {
	ID        string    `bson:"id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	Author    AuthorRef `bson:"author" json:"author"`
}

// Marker 物化后的完整通知：跨实例广播和客户端拉取用的都是它。
// 时间字段走 JSON 时编码为 RFC3339 字符串。
type Marker struct {
	Version   int64     `bson:"version" json:"markerVersion"`
	Cursor    int64     `bson:"-" json:"cursor,omitempty"` // 订阅推送时 = Version
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	Blog      BlogRef   `bson:"blog" json:"blog"`
}

var (
	ErrBadVersion   = errs.NewCodeError(errs.DataBrokenError, "marker version must be positive")
	ErrNoBlog       = errs.NewCodeError(errs.DataBrokenError, "marker blog id missing")
	ErrNoAuthor     = errs.NewCodeError(errs.DataBrokenError, "marker author unresolvable")
	ErrBadTimestamp = errs.NewCodeError(errs.DataBrokenError, "marker timestamp invalid")
)

// Validate 发布/接收两侧共用的契约校验：不合格的负载直接拒绝，不做猜测性修补。
func (m *Marker) Validate() error {
	if m.Version <= 0 {
		return ErrBadVersion.Wrap()
	}
	if m.Blog.ID == "" {
		return ErrNoBlog.Wrap()
	}
	if m.Blog.Author.ID == "" {
		return ErrNoAuthor.WrapMsg("blog_id", m.Blog.ID)
	}
	if m.CreatedAt.IsZero() || m.Blog.CreatedAt.IsZero() {
		return ErrBadTimestamp.WrapMsg("version", m.Version)
	}
	return nil
}
