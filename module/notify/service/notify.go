package service

import (
	"context"

	notifymodel "BProject/module/notify/model"
	"BProject/module/notify/store"
	userservice "BProject/module/user/service"

	"go.mongodb.org/mongo-driver/mongo"
)

// NotifyService 查询/置读的门面。所有基于注册水位的过滤都先回源取
// 用户主档，拿真实注册时间，再把条件下推给 MarkerStore。
type NotifyService struct {
	db      *mongo.Database
	markers *store.MarkerStore
	cursors *store.CursorStore
}

func NewNotifyService(db *mongo.Database) *NotifyService {
	return &NotifyService{
		db:      db,
		markers: store.NewMarkerStore(db),
		cursors: store.NewCursorStore(db),
	}
}

func (s *NotifyService) Markers() *store.MarkerStore { return s.markers }

// GetUnreadMarkers 光标之后的 marker，按 version 升序。
func (s *NotifyService) GetUnreadMarkers(ctx context.Context, userID string) ([]*notifymodel.Marker, error) {
	if _, err := userservice.GetByID(ctx, s.db, userID); err != nil {
		return nil, err
	}
	cur, err := s.cursors.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.markers.GetMarkersAfter(ctx, cur.LastSeenVersion)
}

// GetAllMarkers 注册水位过滤后的全部历史，按 version 降序。
func (s *NotifyService) GetAllMarkers(ctx context.Context, userID string) ([]*notifymodel.Marker, error) {
	user, err := userservice.GetByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return s.markers.GetAllMarkers(ctx, user)
}

// GetUnreadCount 未读 ∩ 注册水位的计数。
func (s *NotifyService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	user, err := userservice.GetByID(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	cur, err := s.cursors.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.markers.GetUnreadCount(ctx, user, cur.LastSeenVersion)
}

// MarkSeen 推进光标（只会前进）并返回更新后的光标 + 重算的未读数。
func (s *NotifyService) MarkSeen(ctx context.Context, userID string, version int64) (*notifymodel.ReadCursor, int64, error) {
	user, err := userservice.GetByID(ctx, s.db, userID)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.cursors.MarkSeen(ctx, userID, version)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.markers.GetUnreadCount(ctx, user, cur.LastSeenVersion)
	if err != nil {
		return nil, 0, err
	}
	return cur, count, nil
}
