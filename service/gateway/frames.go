package gateway

import (
	"encoding/json"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// 帧类型
const (
	TypeAuth = "AUTH"
	TypePing = "PING"

	TypeAuthSuccess  = "AUTH_SUCCESS"
	TypePong         = "PONG"
	TypeNotification = "NOTIFICATION"
)

// InboundFrame 客户端入站信封。userId 允许数字或数字字符串，
// 所以不直接 json.Unmarshal 到结构体，而是走宽松解码。
type InboundFrame struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

// ParseInbound decodes the raw JSON envelope with weakly-typed fields
// ("42" and 42 both bind to UserID).
func ParseInbound(raw []byte) (*InboundFrame, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}

	var f InboundFrame
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &f,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new decoder")
	}
	if err := dec.Decode(m); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	return &f, nil
}

// ---- 服务端出站信封 ----

// NotificationPayload 下发给客户端的通知体；随 NOTIFICATION 帧推送，
// 字段与落库记录保持一致
type NotificationPayload struct {
	ID            int64  `json:"id"`
	Type          string `json:"type"`
	Title         string `json:"title,omitempty"`
	Content       string `json:"content"`
	FromUser      string `json:"fromUser"`
	CreatedAt     string `json:"createdAt"` // ISO-8601
	IsRead        bool   `json:"isRead"`
	RelatedPostID int64  `json:"relatedPostId,omitempty"`
}

func FormatTime(t time.Time) string { return t.Format(time.RFC3339) }

func BuildAuthSuccess() []byte {
	b, _ := json.Marshal(map[string]string{"type": TypeAuthSuccess})
	return b
}

func BuildPong() []byte {
	b, _ := json.Marshal(map[string]string{"type": TypePong})
	return b
}

func BuildNotification(p *NotificationPayload) ([]byte, error) {
	b, err := json.Marshal(map[string]any{
		"type":    TypeNotification,
		"payload": p,
	})
	return b, errors.Wrap(err, "marshal notification frame")
}
