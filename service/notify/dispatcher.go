package notify

import (
	"SocialProject/logger"
	"SocialProject/metrics"
	"SocialProject/service/gateway"
)

// Outcome 投递结果。投递是尽力而为：任何失败对调用方都只表现为 UserOffline，
// 绝不作为 error 向触发通知的业务动作传播。
type Outcome int

const (
	Delivered Outcome = iota
	UserOffline
)

func (o Outcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "user_offline"
}

// Dispatcher 按目标用户做实时下发。relay 可为 nil（单节点部署）。
type Dispatcher struct {
	mgr   *gateway.ConnManager
	relay *Relay
}

func NewDispatcher(mgr *gateway.ConnManager, relay *Relay) *Dispatcher {
	return &Dispatcher{mgr: mgr, relay: relay}
}

// SendToUser 查会话注册表找目标用户的活跃连接并写入序列化信封。
// 本地不在线时交给 relay 广播给其它节点（仍然尽力而为），对调用方报 UserOffline。
func (d *Dispatcher) SendToUser(userID int64, p *gateway.NotificationPayload) Outcome {
	data, err := gateway.BuildNotification(p)
	if err != nil {
		logger.Errorf("[notify] marshal user=%d err=%v", userID, err)
		metrics.RecordDelivery(UserOffline.String())
		return UserOffline
	}

	sess, ok := d.mgr.Resolve(userID)
	if !ok {
		logger.Infof("[notify] user=%d offline", userID)
		if d.relay != nil {
			d.relay.Publish(userID, data)
		}
		metrics.RecordDelivery(UserOffline.String())
		return UserOffline
	}

	if err := d.mgr.Send(sess.ConnID, data); err != nil {
		// 写失败等同离线：记日志，不重试，不上抛
		logger.Infof("[notify] write user=%d connID=%s err=%v", userID, sess.ConnID, err)
		metrics.RecordDelivery(UserOffline.String())
		return UserOffline
	}

	metrics.RecordDelivery(Delivered.String())
	return Delivered
}

// SendToUsers 按用户逐个独立投递；单个失败不影响其余
func (d *Dispatcher) SendToUsers(userIDs []int64, p *gateway.NotificationPayload) map[int64]Outcome {
	out := make(map[int64]Outcome, len(userIDs))
	for _, uid := range userIDs {
		out[uid] = d.SendToUser(uid, p)
	}
	return out
}

// DeliverLocal relay 收到其它节点的通知后只尝试本地投递，不再二次转发
func (d *Dispatcher) DeliverLocal(userID int64, data []byte) {
	sess, ok := d.mgr.Resolve(userID)
	if !ok {
		return
	}
	if err := d.mgr.Send(sess.ConnID, data); err != nil {
		logger.Infof("[notify] relay write user=%d err=%v", userID, err)
	}
}
