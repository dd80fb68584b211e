package notify

import (
	"fmt"
	"strconv"
	"strings"

	"SocialProject/logger"

	"github.com/nats-io/nats.go"
)

const relaySubjectPrefix = "notify.user."

// Relay 跨节点转发：本节点查不到目标用户的连接时，把序列化好的信封
// 广播到 NATS；每个节点都订阅并各自尝试本地投递。依旧是尽力而为，
// 不做持久化、不保证恰好一次。
type Relay struct {
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewRelay(url string) (*Relay, error) {
	nc, err := nats.Connect(url,
		nats.Name("social-notify-relay"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &Relay{nc: nc}, nil
}

func subjectFor(userID int64) string {
	return fmt.Sprintf("%s%d", relaySubjectPrefix, userID)
}

// Publish 失败只记日志；转发丢了由落库记录兜底
func (r *Relay) Publish(userID int64, data []byte) {
	if err := r.nc.Publish(subjectFor(userID), data); err != nil {
		logger.Infof("[relay] publish user=%d err=%v", userID, err)
	}
}

// Start 订阅全部用户主题，收到后交给本地 dispatcher 尝试投递
func (r *Relay) Start(local *Dispatcher) error {
	sub, err := r.nc.Subscribe(relaySubjectPrefix+"*", func(msg *nats.Msg) {
		idStr := strings.TrimPrefix(msg.Subject, relaySubjectPrefix)
		userID, perr := strconv.ParseInt(idStr, 10, 64)
		if perr != nil {
			logger.Warnf("[relay] bad subject %q", msg.Subject)
			return
		}
		local.DeliverLocal(userID, msg.Data)
	})
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *Relay) Close() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	if r.nc != nil {
		r.nc.Close()
	}
}
