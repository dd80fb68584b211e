package handlers

import (
	"SocialProject/logger"
	"SocialProject/service/gateway"
)

// PingHandler 应用层心跳：回 PONG 并给会话续期，不改变认证状态
type PingHandler struct{}

func NewPingHandler() gateway.Handler { return &PingHandler{} }

func (h *PingHandler) Type() string { return gateway.TypePing }

func (h *PingHandler) Handle(ctx *gateway.Context, _ *gateway.InboundFrame, sess *gateway.Session) error {
	ctx.Mgr.Touch(sess.ConnID)
	if err := ctx.Mgr.Send(sess.ConnID, gateway.BuildPong()); err != nil {
		logger.Infof("[ping] pong write err connID=%s err=%v", sess.ConnID, err)
	}
	return nil
}
