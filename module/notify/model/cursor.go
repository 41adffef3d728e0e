package model

import (
	"time"

	"BProject/data/database"
	mgo "BProject/service/mgo"

	"go.mongodb.org/mongo-driver/mongo"
)

var _ database.Table = (*ReadCursor)(nil)

// ReadCursor 每用户一行的已读水位。
// last_seen_version 只通过 $max 前进，乱序/迟到的 markSeen 不会把它拉回去。
type ReadCursor struct {
	UserID          string    `bson:"user_id" json:"userId"`
	LastSeenVersion int64     `bson:"last_seen_version" json:"lastSeenVersion"`
	CreateTime      time.Time `bson:"create_time" json:"-"`
	UpdateTime      time.Time `bson:"update_time" json:"updatedAt"`
}

func (c *ReadCursor) GetTableName() string {
	return "read_cursor"
}

func (c *ReadCursor) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}
