package service

import (
	"context"
	"time"

	"BProject/logger"
	blogmodel "BProject/module/blog/model"
	"BProject/module/notify/queue"
	"BProject/tools/ids"
	errs "BProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// BlogService 博客写路径（外部协作方的最小实现）。
// 创建成功后向事件队列发“博客已创建”，fire-and-forget：
// 入队失败只记日志，博客本身已落库，绝不因通知管道故障让写入失败。
type BlogService struct {
	db *mongo.Database
	q  queue.Queue
}

func NewBlogService(db *mongo.Database, q queue.Queue) *BlogService {
	return &BlogService{db: db, q: q}
}

func (s *BlogService) Create(ctx context.Context, title, content, authorID string) (*blogmodel.Blog, error) {
	if title == "" || authorID == "" {
		return nil, errs.NewCodeError(errs.ArgsError, "title and author_id are required").Wrap()
	}
	now := time.Now()
	blog := &blogmodel.Blog{
		BlogID:     ids.GenerateString(),
		Title:      title,
		Content:    content,
		AuthorID:   authorID,
		CreateTime: now,
		UpdateTime: now,
	}
	if _, err := s.db.Collection(blog.GetTableName()).InsertOne(ctx, blog); err != nil {
		return nil, errs.WrapMsg(err, "insert blog", "title", title)
	}

	// 通知入队：调用方不观察结果
	ev := &queue.BlogCreatedEvent{
		BlogID:    blog.BlogID,
		Title:     blog.Title,
		AuthorID:  blog.AuthorID,
		CreatedAt: blog.CreateTime,
	}
	if err := s.q.Enqueue(ctx, ev); err != nil {
		logger.Errorf("[BlogService] enqueue blog_created for %s failed: %v", blog.BlogID, err)
	}
	return blog, nil
}

func (s *BlogService) GetByID(ctx context.Context, blogID string) (*blogmodel.Blog, error) {
	var blog blogmodel.Blog
	err := s.db.Collection(blog.GetTableName()).
		FindOne(ctx, bson.M{"blog_id": blogID}).Decode(&blog)
	if err != nil {
		return nil, errs.WrapMsg(err, "find blog", "blog_id", blogID)
	}
	return &blog, nil
}
