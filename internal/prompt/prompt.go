// Package prompt assembles the instructions sent to the completion provider.
// Every function here is pure: it reads its arguments and returns a string.
package prompt

import (
	"encoding/json"
	"strings"

	"weibosim/internal/model"
)

// ContentPolicy is appended to every task. It forbids romance between any two
// non-user characters.
const ContentPolicy = `# 【【【绝对禁止事项：这是必须遵守的最高指令】】】
1.  你的所有创作内容，包括帖子、评论、故事等，【绝对禁止】将任意两个AI角色（即除了用户之外的角色）描绘成情侣关系、进行恋爱互动或存在任何形式的暧昧情感。
2.  AI角色之间的关系只能是朋友、同事、对手、家人等，但【绝不能】是恋人。
3.  AI角色唯一可以产生恋爱关系的对象是【用户】。违反此规则将导致生成失败。`

// Persona budgets, in runes.
const (
	FigureBudget          = 150
	FeedPersonBudget      = 100
	AuthorPersonaBudget   = 400
	CommenterBudget       = 200
	PostContentBudget     = 200
	DmPersonaBudget       = 500
	DmInstructionBudget   = 400
	RecentCommentsShown   = 5
	RecentThreadsShown    = 5
	RecentDmMessagesShown = 5
)

// Fallback texts used when a profile field is blank.
const (
	unsetProfession     = "未设定"
	noneText            = "无"
	defaultCharPersona  = "一个普通的角色"
	defaultInstruction  = "无特殊指令"
	defaultUserPersona  = model.DefaultWeiboUserPersona
	defaultAuthorPerson = "一个普通用户。"
)

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// figure is a public figure as shown to the model.
type figure struct {
	Name        string `json:"name"`
	Persona     string `json:"persona"`
	Profession  string `json:"weibo_profession,omitempty"`
	Instruction string `json:"weibo_instruction,omitempty"`
}

// person is a character or NPC available to speak in a topic feed.
type person struct {
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// indentJSON renders v the way the model sees reference data.
func indentJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func compactJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// publicFigures drops group chats and condenses personas to FigureBudget.
func publicFigures(chars []model.Character, withProfile bool) []figure {
	out := make([]figure, 0, len(chars))
	for _, c := range chars {
		if c.IsGroup {
			continue
		}
		f := figure{
			Name:    c.Name,
			Persona: Truncate(c.Settings.AIPersona, FigureBudget) + "...",
		}
		if withProfile {
			f.Profession = orDefault(c.Settings.WeiboProfession, unsetProfession)
			f.Instruction = orDefault(c.Settings.WeiboInstruction, noneText)
		}
		out = append(out, f)
	}
	return out
}

// userNickname is how the user is named inside prompts.
func userNickname(s model.UserSettings) string {
	if s.WeiboNickname != "" {
		return s.WeiboNickname
	}
	return s.Nickname
}
