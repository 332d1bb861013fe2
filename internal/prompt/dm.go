package prompt

import (
	"fmt"
	"strings"

	"weibosim/internal/model"
)

// CharacterDms builds the task for fan threads in a character's inbox. With
// addMore, existing threads are shown and fewer new fans are requested.
func CharacterDms(c model.Character, addMore bool) string {
	fans := "3-5"
	existing := ""
	if addMore {
		fans = "2-3"
		existing = "\n# 已有私信记录 (供你参考，你可以选择延续对话或开启新对话):\n" + indentJSON(c.WeiboDms) + "\n"
	}

	persona := Truncate(orDefault(c.Settings.AIPersona, defaultCharPersona), DmPersonaBudget)
	instruction := Truncate(orDefault(c.Settings.WeiboInstruction, defaultInstruction), DmInstructionBudget)

	return fmt.Sprintf(`# 任务
你现在是角色“%[1]s”的社交媒体运营助理。
你的任务是根据该角色的【所有信息】，虚构一个包含%[2]s位不同粉丝的私信列表，并为每位粉丝创作一段生动、真实的对话历史。
%[3]s
%[4]s

# 角色信息 (你必须综合参考以下所有信息)
- 角色名: %[1]s
- 公开职业: %[5]s
- 核心人设 (最高优先级): %[6]s
- 微博互动准则 (处理私信时需遵守): %[7]s

# 核心规则
1.  **粉丝多样性**: 创作%[2]s位不同类型的粉丝（例如：狂热粉、事业粉、CP粉、黑粉、路人粉、广告商等）。
2.  **【【【对话鲜活度铁律】】】**: 为了让对话更真实，你必须：
    -   **避免机械问答**：不要生成"你好"-"你好"之类的无意义对话。让对话像一个正在进行的真实互动片段。
    -   **注入情绪和语气**：粉丝的语气可以是兴奋的、担忧的、质疑的、开玩笑的。角色的回应也要符合人设，可能是冷淡的、温柔的、官方的，或者干脆已读不回。
    -   **使用网络语言**: 适当加入符合粉丝圈文化的网络用语、emoji或颜文字，让对话更接地气。
    -   **内容多样化**: 私信内容不应只局限于工作，也可以是粉丝分享自己的日常、表达关心、提出一些私人问题等。
3.  **角色回应**: 根据角色的【微博互动准则】和【核心人设】，决定角色是否会回复私信以及如何回复。例如，一个高冷的角色可能只会回复重要信息，或者干脆不回复。
4.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON数组，直接以 '[' 开头，以 ']' 结尾。

# JSON对象结构 (注意：你不再需要提供头像URL)
{
"fanName": "粉丝的微博昵称",
"fanPersona": "对这位粉丝的简单描述 (例如: '一个担心哥哥事业的妈妈粉')",
"messages": [
    { "sender": "fan", "text": "粉丝发的第一条消息..." },
    { "sender": "char", "text": "角色回复的消息..." }
]
}

现在，请开始生成私信列表。`,
		c.Name, fans, existing, ContentPolicy,
		orDefault(c.Settings.WeiboProfession, unsetProfession), persona, instruction)
}

func userBlock(s model.UserSettings) string {
	return fmt.Sprintf(`- 微博昵称: %s
- 微博职业: %s
- 博主的隐藏人设: %s`,
		userNickname(s),
		orDefault(s.WeiboUserProfession, unsetProfession),
		orDefault(s.WeiboUserPersona, defaultUserPersona))
}

// UserDms builds the task for fan threads in the user's own inbox. Fans only
// speak; the user answers by hand.
func UserDms(s model.UserSettings, addMore bool) string {
	fans := "5-8"
	existing := ""
	if addMore {
		fans = "3-4"
		recent := s.UserDms
		if len(recent) > RecentThreadsShown {
			recent = recent[len(recent)-RecentThreadsShown:]
		}
		existing = "# 已有私信 (供你参考，请生成全新的对话)\n" + compactJSON(recent)
	}

	pool := make([]string, len(model.FanAvatarPool))
	for i, u := range model.FanAvatarPool {
		pool[i] = "- " + u
	}

	return fmt.Sprintf(`# 任务
你是一个专业的"微博生态模拟器"。你的任务是根据用户的微博人设，虚构一个包含%[1]s位不同粉丝/路人的私信列表，并为每位粉丝创作一段【他们单方面发送给用户的】私信内容。

# 用户信息 (这是你私信的对象，请仔细阅读)
- 你的微博昵称: %[2]s
- 你的微博职业: %[3]s
- 你的隐藏人设 (粉丝看不到，但会影响他们对你的态度): %[4]s
%[5]s
%[6]s

# 核心规则
1.  **粉丝多样性**: 创作%[1]s位不同类型的粉丝。他们的私信内容和语气【必须】与他们的身份以及【用户的微博人设】高度相关。
2.  **【【【对话单向性铁律】】】**: 你生成的对话【只能包含粉丝发送给用户的消息】。绝对不要模拟用户的回复。
3.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON数组，直接以 '[' 开头，以 ']' 结尾。
4.  **随机头像**: 为每位粉丝从下方头像池中随机挑选一个URL。

# JSON对象结构 (重要：messages数组里只能有sender为"fan"的对象！)
{
"fanName": "粉丝的微博昵称",
"fanPersona": "对这位粉丝的简单描述 (例如: '一个担心哥哥事业的妈妈粉')",
"fanAvatarUrl": "从头像池中选择的URL",
"messages": [
    { "sender": "fan", "text": "这是粉丝发来的第一条消息..." },
    { "sender": "fan", "text": "这是粉丝紧接着发的第二条消息，因为还没收到回复..." }
]
}

# 头像池 (fanAvatarUrl 必须从以下链接中选择一个)
%[7]s
现在，请开始生成【只有粉丝发言】的私信列表。`,
		fans,
		userNickname(s),
		orDefault(s.WeiboUserProfession, unsetProfession),
		orDefault(s.WeiboUserPersona, defaultUserPersona),
		existing, ContentPolicy, strings.Join(pool, "\n"))
}

// UserDmReply builds the task for a fan answering the user. The fan sees the
// last few messages; the user's own lines are labelled "我".
func UserDmReply(conv model.DmConversation, s model.UserSettings) string {
	recent := conv.LastMessages(RecentDmMessagesShown)
	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		speaker := model.DefaultUserNickname
		if m.Sender == model.SenderFan {
			speaker = conv.FanName
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", speaker, m.Text))
	}

	return fmt.Sprintf(`# 角色扮演任务
你将扮演一个正在和偶像或博主私信的粉丝。
%s

# 你的粉丝人设
- 你的昵称: "%s"
- 你的性格和背景: "%s"

# 博主信息 (你正在和他/她聊天)
%s

# 对话历史 (最近的5条)
%s

# 你的任务
根据以上人设和对话历史，生成你接下来的回复。

# 回复规则
1.  **深度扮演**: 你的回复必须【极度符合】你的粉丝人设。语气、用词、情绪都要到位。
2.  **内容丰富**: 不要只回复一句话。你的回复应该包含情绪(激动、失望、好奇等)、思考，或者向博主提出新的问题来推动对话。
3.  **【【【格式铁律】】】**: 你的回复必须是一个【JSON数组】，即使只有一条消息。这个数组可以包含3到8条消息对象，模拟真实聊天中连续发消息的场景。
4.  **对象结构**: 数组中的每个对象都必须是 {"sender": "fan", "text": "你的单条回复内容"}.

现在，请以JSON数组的格式，生成你接下来要发送的1-3条消息。`,
		ContentPolicy, conv.FanName, conv.FanPersona, userBlock(s), strings.Join(lines, "\n"))
}
