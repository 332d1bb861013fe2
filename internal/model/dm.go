package model

import "errors"

// Sender tags who wrote a DM message. For threads owned by the user, SenderChar
// marks the user's own messages.
type Sender string

const (
	SenderFan  Sender = "fan"
	SenderChar Sender = "char"
)

// Valid reports whether s is a known role.
func (s Sender) Valid() bool {
	return s == SenderFan || s == SenderChar
}

// DmMessage is one line in a fan thread.
type DmMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// DmConversation is a simulated fan direct-message thread.
type DmConversation struct {
	FanName      string      `json:"fanName"`
	FanPersona   string      `json:"fanPersona"`
	FanAvatarURL string      `json:"fanAvatarUrl"`
	Messages     []DmMessage `json:"messages"`
}

// Normalize replaces nil sequences with empty ones.
func (c *DmConversation) Normalize() {
	if c.Messages == nil {
		c.Messages = []DmMessage{}
	}
}

// LastMessages returns up to n trailing messages.
func (c *DmConversation) LastMessages(n int) []DmMessage {
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// FanAvatarPool is the avatar rotation assigned to generated fans.
var FanAvatarPool = []string{
	"https://i.postimg.cc/PxZrFFFL/o-o-1.jpg",
	"https://i.postimg.cc/Qd0Y537F/com-xingin-xhs-20251011153800.png",
}

// GenerateUserDmsRequest asks for fan threads in the user's inbox.
// Replacing existing threads requires ConfirmOverwrite.
type GenerateUserDmsRequest struct {
	AddMore          bool `json:"addMore"`
	ConfirmOverwrite bool `json:"confirmOverwrite"`
}

// SendDmRequest is the body for the user's outgoing DM.
type SendDmRequest struct {
	Text string `json:"text"`
}

// DM errors
var (
	ErrConversationNotFound  = errors.New("dm conversation not found")
	ErrMessageNotFound       = errors.New("dm message not found")
	ErrInvalidDmArray        = errors.New("AI返回的数据不是一个有效的数组。")
	ErrRerollUnavailable     = errors.New("只能对粉丝的最新回复使用重Roll功能哦。")
	ErrOverwriteNotConfirmed = errors.New("已有私信记录，重新生成将覆盖现有所有私信")
)
