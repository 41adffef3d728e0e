package model

import (
	"time"

	"BProject/data/database"
	mgo "BProject/service/mgo"

	"go.mongodb.org/mongo-driver/mongo"
)

var _ database.Table = (*User)(nil)

// Status
const (
	UserNormal int32 = 0
	UserBanned int32 = 1
	UserClosed int32 = 2
)

// User 表示平台的注册用户（作者/读者）。
// 只放用户主档关键信息；登录态/偏好等由外部协作方负责。
type User struct {
	UserID   string `bson:"user_id" json:"id"`        // 全局唯一、不可变的用户ID（主键）
	Username string `bson:"username" json:"username"` // 登录名/展示名
	Email    string `bson:"email,omitempty" json:"-"`
	Status   int32  `bson:"status,omitempty" json:"-"` // 0=正常,1=禁用,2=注销

	// CreateTime 即注册时间：通知历史可见性的“注册水位”以它为准。
	CreateTime time.Time `bson:"create_time" json:"createdAt"`
	UpdateTime time.Time `bson:"update_time" json:"-"`
	Ex         string    `bson:"ex,omitempty" json:"-"` // 预留扩展(JSON)
}

func (u *User) GetUserID() string {
	return u.UserID
}

func (u *User) GetTableName() string {
	return "user"
}

func (u *User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}
