package gateway

// Handler 单个入站帧类型的处理器
type Handler interface {
	Type() string
	Handle(ctx *Context, f *InboundFrame, sess *Session) error
}

// Context 传给 handler 的运行时依赖
type Context struct {
	Mgr *ConnManager
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

// GetHandler 未注册的类型返回 nil；调用方记日志并忽略该帧
func (d *Dispatcher) GetHandler(t string) Handler {
	return d.handlers[t]
}
