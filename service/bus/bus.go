package bus

import (
	"context"
	"encoding/json"

	notifymodel "BProject/module/notify/model"
	"BProject/tools/decode"
	errs "BProject/tools/errs"
)

// ChannelMarkers 唯一的广播通道名：所有实例的 worker 往这里发，
// 所有实例的订阅端从这里收。
const ChannelMarkers = "notify:markers"

// Handler 收到并通过校验的 marker 交给它（通常就是本地扇出的 Publish）。
type Handler func(m *notifymodel.Marker)

// Bus 跨实例广播。Publish 前必须校验，坏负载返回错误给调用方（worker），
// 不允许静默丢弃；Subscribe 侧坏消息只记日志丢弃，绝不让订阅循环退出。
// 总线不保证投递顺序与 version 顺序一致，消费方以 version 为准。
type Bus interface {
	Publish(ctx context.Context, m *notifymodel.Marker) error
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

// EncodeMarker 序列化为线格式：原始字段 + 嵌套 blog/author，
// 时间戳编码为 ISO-8601 字符串（time.Time 的 JSON 编码即 RFC3339）。
func EncodeMarker(m *notifymodel.Marker) ([]byte, error) {
	if m == nil {
		return nil, errs.New("marker is nil")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	wire := *m
	wire.Cursor = m.Version // 订阅端拿它做增量过滤
	b, err := json.Marshal(&wire)
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal marker", "version", m.Version)
	}
	return b, nil
}

// DecodeMarker 反序列化 + 时间字段还原 + 契约校验。
func DecodeMarker(data []byte) (*notifymodel.Marker, error) {
	m, err := decode.DecodeJSON[notifymodel.Marker](data)
	if err != nil {
		return nil, errs.WrapMsg(err, "decode marker payload")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
