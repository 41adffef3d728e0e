package service

import (
	"context"
	"errors"
	"time"

	usermodel "BProject/module/user/model"
	"BProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrUserNotFound = errs.NewCodeError(errs.RecordNotFoundError, "user not found")

// GetByID 取用户主档。通知查询每次都要拿“真实注册时间”，
// 不接受调用方自带的声明值，所以这里总是回源查库。
func GetByID(ctx context.Context, db *mongo.Database, userID string) (*usermodel.User, error) {
	if userID == "" {
		return nil, errs.NewCodeError(errs.ArgsError, "user id is empty").Wrap()
	}
	var u usermodel.User
	err := db.Collection(u.GetTableName()).
		FindOne(ctx, bson.M{"user_id": userID}).
		Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound.WrapMsg("user_id", userID)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user", "user_id", userID)
	}
	return &u, nil
}

// Register 注册用户（外部协作方的最小落库路径，供联调/测试用）。
func Register(ctx context.Context, db *mongo.Database, u *usermodel.User) error {
	now := time.Now()
	if u.CreateTime.IsZero() {
		u.CreateTime = now
	}
	u.UpdateTime = now
	_, err := db.Collection(u.GetTableName()).InsertOne(ctx, u)
	if err != nil {
		return errs.WrapMsg(err, "insert user", "user_id", u.UserID)
	}
	return nil
}
