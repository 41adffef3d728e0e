package store

import (
	"context"
	"errors"
	"time"

	"BProject/logger"
	blogmodel "BProject/module/blog/model"
	notifymodel "BProject/module/notify/model"
	usermodel "BProject/module/user/model"
	errs "BProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// registrationGrace 注册水位的宽限窗：比注册时间早不超过 1s 的博客也算可见。
// 这是启发式，不是精确因果保证；边界不承载业务含义。
const registrationGrace = time.Second

func horizonTime(u *usermodel.User) time.Time {
	return u.CreateTime.Add(-registrationGrace)
}

var ErrMarkerBroken = errs.NewCodeError(errs.DataBrokenError, "marker committed without resolvable payload")

// MarkerStore 是 marker 的唯一生命周期 owner：只插入，从不更新/删除。
// 发号必须走 counter 集合的 $inc，和插入放在同一个事务里，
// 保证不会出现“发了号却没有对应 marker 行”。
type MarkerStore struct {
	db *mongo.Database
}

func NewMarkerStore(db *mongo.Database) *MarkerStore {
	return &MarkerStore{db: db}
}

func (s *MarkerStore) markers() *mongo.Collection {
	m := notifymodel.NotificationMarker{}
	return s.db.Collection(m.GetTableName())
}

// CreateMarker 发号 + 落库 + 物化回读。
// 回读一次失败再重试一次；仍拿不到完整 blog/author 视为致命构造错误：
// marker 行已经存在但负载无法解析，不是可重试场景。
func (s *MarkerStore) CreateMarker(ctx context.Context, blog *blogmodel.Blog) (*notifymodel.Marker, error) {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return nil, errs.WrapMsg(err, "start session")
	}
	defer sess.EndSession(ctx)

	var version int64
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		counter := notifymodel.VersionCounter{}
		e := s.db.Collection(counter.GetTableName()).FindOneAndUpdate(sc,
			bson.M{"_id": notifymodel.CounterMarkerVersion},
			bson.M{"$inc": bson.M{"seq": int64(1)}},
			options.FindOneAndUpdate().
				SetUpsert(true).
				SetReturnDocument(options.After),
		).Decode(&counter)
		if e != nil {
			return nil, e
		}

		row := notifymodel.NotificationMarker{
			Version:        counter.Seq,
			BlogID:         blog.BlogID,
			BlogCreateTime: blog.CreateTime,
			CreateTime:     time.Now(),
		}
		if _, e := s.db.Collection(row.GetTableName()).InsertOne(sc, &row); e != nil {
			return nil, e
		}
		version = counter.Seq
		return nil, nil
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "create marker", "blog_id", blog.BlogID)
	}

	m, err := s.materialize(ctx, version)
	if err != nil {
		// 第一次 join 不完整时重试一次（副本延迟等），再失败就硬错
		m, err = s.materialize(ctx, version)
		if err != nil {
			return nil, ErrMarkerBroken.WrapMsg("materialize failed", "version", version, "cause", err.Error())
		}
	}
	return m, nil
}

// materialize 按 version 回读 marker，并关联 blog 与 author 组装完整负载。
func (s *MarkerStore) materialize(ctx context.Context, version int64) (*notifymodel.Marker, error) {
	var row notifymodel.NotificationMarker
	if err := s.markers().FindOne(ctx, bson.M{"version": version}).Decode(&row); err != nil {
		return nil, errs.WrapMsg(err, "find marker", "version", version)
	}

	var blog blogmodel.Blog
	err := s.db.Collection(blog.GetTableName()).
		FindOne(ctx, bson.M{"blog_id": row.BlogID}).Decode(&blog)
	if err != nil {
		return nil, errs.WrapMsg(err, "find marker blog", "blog_id", row.BlogID)
	}

	var author usermodel.User
	err = s.db.Collection(author.GetTableName()).
		FindOne(ctx, bson.M{"user_id": blog.AuthorID}).Decode(&author)
	if err != nil {
		return nil, errs.WrapMsg(err, "find marker author", "author_id", blog.AuthorID)
	}

	m := assemble(&row, &blog, &author)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func assemble(row *notifymodel.NotificationMarker, blog *blogmodel.Blog, author *usermodel.User) *notifymodel.Marker {
	return &notifymodel.Marker{
		Version:   row.Version,
		CreatedAt: row.CreateTime,
		Blog: notifymodel.BlogRef{
			ID:        blog.BlogID,
			Title:     blog.Title,
			Content:   blog.Content,
			CreatedAt: blog.CreateTime,
			Author: notifymodel.AuthorRef{
				ID:       author.UserID,
				Username: author.Username,
			},
		},
	}
}

// GetMarkersAfter 返回 version > after 的 marker，按 version 升序（未读拉取）。
func (s *MarkerStore) GetMarkersAfter(ctx context.Context, after int64) ([]*notifymodel.Marker, error) {
	return s.query(ctx,
		bson.M{"version": bson.M{"$gt": after}},
		options.Find().SetSort(bson.D{{Key: "version", Value: 1}}),
	)
}

// GetAllMarkers 历史拉取：注册水位过滤后按 version 降序。
// 过滤基准是调用时传入的用户主档（每次都回源取真实注册时间，不信缓存声明）。
func (s *MarkerStore) GetAllMarkers(ctx context.Context, user *usermodel.User) ([]*notifymodel.Marker, error) {
	return s.query(ctx,
		bson.M{"blog_create_time": bson.M{"$gt": horizonTime(user)}},
		options.Find().SetSort(bson.D{{Key: "version", Value: -1}}),
	)
}

// GetUnreadCount 未读过滤与注册水位过滤的交集计数。
func (s *MarkerStore) GetUnreadCount(ctx context.Context, user *usermodel.User, lastSeen int64) (int64, error) {
	n, err := s.markers().CountDocuments(ctx, bson.M{
		"version":          bson.M{"$gt": lastSeen},
		"blog_create_time": bson.M{"$gt": horizonTime(user)},
	})
	if err != nil {
		return 0, errs.WrapMsg(err, "count unread", "user_id", user.UserID)
	}
	return n, nil
}

// query 查行 + 批量关联 blog/author。读路径上关联缺失只记日志并跳过该行，
// 不让一条坏数据拖垮整页结果。
func (s *MarkerStore) query(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*notifymodel.Marker, error) {
	cur, err := s.markers().Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find markers")
	}
	var rows []notifymodel.NotificationMarker
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.WrapMsg(err, "decode markers")
	}
	if len(rows) == 0 {
		return []*notifymodel.Marker{}, nil
	}

	blogIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		blogIDs = append(blogIDs, r.BlogID)
	}
	blogByID, authorByID, err := s.fetchRefs(ctx, blogIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*notifymodel.Marker, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		blog, ok := blogByID[r.BlogID]
		if !ok {
			logger.Warnf("[MarkerStore] marker v%d references missing blog %s, skipped", r.Version, r.BlogID)
			continue
		}
		author, ok := authorByID[blog.AuthorID]
		if !ok {
			logger.Warnf("[MarkerStore] marker v%d references missing author %s, skipped", r.Version, blog.AuthorID)
			continue
		}
		out = append(out, assemble(r, blog, author))
	}
	return out, nil
}

func (s *MarkerStore) fetchRefs(ctx context.Context, blogIDs []string) (map[string]*blogmodel.Blog, map[string]*usermodel.User, error) {
	var b blogmodel.Blog
	cur, err := s.db.Collection(b.GetTableName()).
		Find(ctx, bson.M{"blog_id": bson.M{"$in": blogIDs}})
	if err != nil {
		return nil, nil, errs.WrapMsg(err, "find marker blogs")
	}
	var blogs []blogmodel.Blog
	if err := cur.All(ctx, &blogs); err != nil {
		return nil, nil, errs.WrapMsg(err, "decode marker blogs")
	}

	blogByID := make(map[string]*blogmodel.Blog, len(blogs))
	authorIDs := make([]string, 0, len(blogs))
	for i := range blogs {
		blogByID[blogs[i].BlogID] = &blogs[i]
		authorIDs = append(authorIDs, blogs[i].AuthorID)
	}

	authorByID := make(map[string]*usermodel.User)
	if len(authorIDs) > 0 {
		var u usermodel.User
		cur, err = s.db.Collection(u.GetTableName()).
			Find(ctx, bson.M{"user_id": bson.M{"$in": authorIDs}})
		if err != nil {
			return nil, nil, errs.WrapMsg(err, "find marker authors")
		}
		var users []usermodel.User
		if err := cur.All(ctx, &users); err != nil {
			return nil, nil, errs.WrapMsg(err, "decode marker authors")
		}
		for i := range users {
			authorByID[users[i].UserID] = &users[i]
		}
	}
	return blogByID, authorByID, nil
}

// GetBlogByID worker 物化前回查博客；不存在返回 (nil, nil)，
// 由调用方按“数据错误、丢弃事件”处理。
func (s *MarkerStore) GetBlogByID(ctx context.Context, blogID string) (*blogmodel.Blog, error) {
	var blog blogmodel.Blog
	err := s.db.Collection(blog.GetTableName()).
		FindOne(ctx, bson.M{"blog_id": blogID}).Decode(&blog)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find blog", "blog_id", blogID)
	}
	return &blog, nil
}
