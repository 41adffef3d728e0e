package store

import (
	"context"
	"time"

	notifymodel "BProject/module/notify/model"
	errs "BProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CursorStore 每用户已读水位。行在首次读取时懒建（last_seen_version=0），
// 前进只走 $max：同一用户乱序到达的 markSeen 不会把水位拉低。
type CursorStore struct {
	db *mongo.Database
}

func NewCursorStore(db *mongo.Database) *CursorStore {
	return &CursorStore{db: db}
}

func (s *CursorStore) coll() *mongo.Collection {
	c := notifymodel.ReadCursor{}
	return s.db.Collection(c.GetTableName())
}

// Get 取用户光标；不存在则按 0 懒建。
func (s *CursorStore) Get(ctx context.Context, userID string) (*notifymodel.ReadCursor, error) {
	now := time.Now()
	var cur notifymodel.ReadCursor
	err := s.coll().FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"last_seen_version": int64(0),
			"create_time":       now,
			"update_time":       now,
		}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&cur)
	if err != nil {
		return nil, errs.WrapMsg(err, "get cursor", "user_id", userID)
	}
	return &cur, nil
}

// MarkSeen 置 last_seen_version = max(当前值, version)。
func (s *CursorStore) MarkSeen(ctx context.Context, userID string, version int64) (*notifymodel.ReadCursor, error) {
	now := time.Now()
	var cur notifymodel.ReadCursor
	err := s.coll().FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$max":         bson.M{"last_seen_version": version},
			"$set":         bson.M{"update_time": now},
			"$setOnInsert": bson.M{"create_time": now},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&cur)
	if err != nil {
		return nil, errs.WrapMsg(err, "mark seen", "user_id", userID, "version", version)
	}
	return &cur, nil
}
