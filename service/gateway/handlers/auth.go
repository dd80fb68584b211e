package handlers

import (
	"SocialProject/logger"
	"SocialProject/service/gateway"
)

// AuthHandler 认证握手。此通道信任调用方，不校验凭据；
// userId 解析不出来就忽略该帧，连接保持未认证态。
type AuthHandler struct{}

func NewAuthHandler() gateway.Handler { return &AuthHandler{} }

func (h *AuthHandler) Type() string { return gateway.TypeAuth }

func (h *AuthHandler) Handle(ctx *gateway.Context, f *gateway.InboundFrame, sess *gateway.Session) error {
	if f.UserID <= 0 {
		logger.Infof("[auth] skip, bad userId connID=%s", sess.ConnID)
		return nil
	}

	ctx.Mgr.Bind(sess.ConnID, f.UserID)
	logger.Infof("[auth] bound user=%d connID=%s", f.UserID, sess.ConnID)

	if err := ctx.Mgr.Send(sess.ConnID, gateway.BuildAuthSuccess()); err != nil {
		logger.Infof("[auth] ack write err connID=%s err=%v", sess.ConnID, err)
	}
	return nil
}
