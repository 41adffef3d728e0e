package bus

import (
	"context"
	"strings"
	"time"

	"BProject/logger"
	notifymodel "BProject/module/notify/model"
	errs "BProject/tools/errs"

	"github.com/nats-io/nats.go"
)

// natsSubject Redis 通道名里的冒号在 NATS 里换成点号。
const natsSubject = "notify.markers"

// NatsBus NATS core 版广播总线。重连由客户端选项负责
// （MaxReconnects(-1) + ReconnectWait），掉线期间同样不重放。
type NatsBus struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewNatsBus(servers []string, name string) (*NatsBus, error) {
	if len(servers) == 0 {
		return nil, errs.New("nats servers missing")
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[NatsBus] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("[NatsBus] reconnected to %s", c.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(strings.Join(servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats")
	}
	return &NatsBus{nc: nc}, nil
}

func (b *NatsBus) Publish(ctx context.Context, m *notifymodel.Marker) error {
	data, err := EncodeMarker(m)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(natsSubject, data); err != nil {
		return errs.WrapMsg(err, "publish marker", "version", m.Version)
	}
	return nil
}

func (b *NatsBus) Subscribe(_ context.Context, h Handler) error {
	sub, err := b.nc.Subscribe(natsSubject, func(msg *nats.Msg) {
		m, err := DecodeMarker(msg.Data)
		if err != nil {
			logger.Errorf("[NatsBus] drop bad payload: %v payload=%.256s", err, msg.Data)
			return
		}
		h(m)
	})
	if err != nil {
		return errs.WrapMsg(err, "subscribe", "subject", natsSubject)
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	b.sub = sub
	return nil
}

func (b *NatsBus) Close() error {
	if b.sub != nil {
		_ = b.sub.Drain()
	}
	if b.nc != nil {
		return b.nc.Drain()
	}
	return nil
}
