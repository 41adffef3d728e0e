package model

import (
	"time"

	"BProject/data/database"
	mgo "BProject/service/mgo"

	"go.mongodb.org/mongo-driver/mongo"
)

var _ database.Table = (*Blog)(nil)

// Blog 博客主档。通知子系统只读它：worker 物化 marker 时按 blog_id 回查。
type Blog struct {
	BlogID   string `bson:"blog_id" json:"id"` // 全局唯一（雪花ID字符串）
	Title    string `bson:"title" json:"title"`
	Content  string `bson:"content" json:"content"`
	AuthorID string `bson:"author_id" json:"-"`

	CreateTime time.Time `bson:"create_time" json:"createdAt"`
	UpdateTime time.Time `bson:"update_time" json:"-"`
	Ex         string    `bson:"ex,omitempty" json:"-"`
}

func (b *Blog) GetTableName() string {
	return "blog"
}

func (b *Blog) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(b.GetTableName())
}
