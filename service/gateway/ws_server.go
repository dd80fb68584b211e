package gateway

import (
	"net"
	"net/http"

	"SocialProject/logger"
	"SocialProject/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server 每连接一个读循环；出站写全部经由 ConnManager.Send
type Server struct {
	mgr  *ConnManager
	disp *Dispatcher
}

func NewServer(mgr *ConnManager) *Server {
	return &Server{mgr: mgr, disp: NewDispatcher()}
}

func (s *Server) Disp() *Dispatcher { return s.disp }
func (s *Server) Mgr() *ConnManager { return s.mgr }

// HandleWS gin 路由入口：升级、登记、读循环、注销。
// 连接状态机：未认证 -> (AUTH) 认证 -> (任一侧关闭) 终止。
// 协议错误一律记日志忽略，连接保持存活。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	connID := ids.GenerateString()
	sess, err := s.mgr.Register(connID, ws)
	if err != nil {
		logger.Errorf("[WS] register connID=%s err=%v", connID, err)
		_ = ws.Close()
		return
	}
	logger.Infof("[WS] connected connID=%s remote=%v", connID, sess.Remote)

	// 无论哪一侧先关，注销路径只走一次（Unregister 幂等兜底）
	defer func() {
		s.mgr.Unregister(connID)
		logger.Infof("[WS] closed connID=%s user=%d", connID, sess.UserID)
	}()

	// ---- 读循环：只读，出错即退出 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed connID=%s err=%v", connID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout connID=%s err=%v", connID, rerr)
			} else {
				logger.Infof("[WS] read err connID=%s err=%v", connID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseInbound(data)
		if perr != nil {
			// 坏帧不断连；只打印简短样本
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] bad frame connID=%s err=%v sample=%q", connID, perr, sample)
			continue
		}

		h := s.disp.GetHandler(frame.Type)
		if h == nil {
			logger.Infof("[WS] unknown frame type=%q connID=%s", frame.Type, connID)
			continue
		}
		if herr := h.Handle(&Context{Mgr: s.mgr}, frame, sess); herr != nil {
			logger.Infof("[WS] handler type=%s connID=%s err=%v", frame.Type, connID, herr)
		}
	}
}
