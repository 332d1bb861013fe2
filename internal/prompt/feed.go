package prompt

import (
	"fmt"
	"strings"

	"weibosim/internal/model"
)

// HotSearch builds the trending-list task. explicit marks a hand-picked target
// list; a single hand-picked character narrows every topic to that person.
func HotSearch(chars []model.Character, explicit bool) string {
	figures := publicFigures(chars, false)

	task := "你的任务是根据下方提供的'核心参考人物'信息，为他们量身打造一个包含10个热搜话题的榜单。"
	if explicit && len(figures) == 1 {
		task = fmt.Sprintf("你的任务是只为下方唯一的\"核心参考人物\"【%s】，量身打造一个包含10个热搜话题的榜单。所有话题【必须】与Ta强相关。", figures[0].Name)
	}

	figuresContext := "当前没有特定的公众人物，请自由生成热点事件。"
	if len(figures) > 0 {
		figuresContext = "# 核心参考人物 (你必须围绕他们生成热搜)\n" + indentJSON(figures)
	}

	return fmt.Sprintf(`# 任务
你是一个专业的"微博热搜榜单生成器"。%s
%s
# 核心规则
1.  **强相关性**: 生成的话题【必须】与"核心参考人物"的身份、职业、人设高度相关。例如，如果是电竞选手，热搜就应该是关于比赛；如果是演员，就应该是关于新剧。
2.  **【【【严禁杜撰】】】**: 绝对禁止为列表中的人物【凭空捏造】他们人设中没有的职业、身份或背景。你只能根据提供的人设进行合理发挥。
3.  **真实感与多样性**: 为了让榜单更真实，你可以混合2-3个与核心人物无关的、社会化的虚拟热点事件。
4.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON数组，数组中包含10个对象。每个对象【必须】包含以下三个字段:
    -   "topic": (字符串) 热搜的话题，必须用"#"符号包裹。
    -   "heat": (字符串) 热度值，例如 "345.6万"。
    -   "tag": (字符串) 一个标签，必须从 "热"、"新"、"荐" 中选择一个。
%s
`, task, ContentPolicy, figuresContext)
}

// TopicFeed builds the task for posts under one trending topic. Every
// non-group character and every NPC may speak.
func TopicFeed(topic string, chars []model.Character) string {
	people := make([]person, 0, len(chars))
	for _, c := range chars {
		if c.IsGroup {
			continue
		}
		people = append(people, person{Name: c.Name, Persona: Truncate(c.Settings.AIPersona, FeedPersonBudget)})
	}
	for _, c := range chars {
		for _, npc := range c.NPCLibrary {
			people = append(people, person{Name: npc.Name, Persona: Truncate(npc.Persona, FeedPersonBudget)})
		}
	}

	return fmt.Sprintf(`# 任务
你是一个"微博内容生成器"。你的任务是围绕一个给定的热搜话题，生成一批相关的微博帖子。

# 当前热搜话题
**%[1]s**
%[2]s

# 核心规则
1.  **数量**: 生成 5 到 10 条微博。
2.  **相关性**: 所有微博内容【必须】与话题 **"%[1]s"** 强相关，并且【必须】在内容中包含 **%[1]s** 这个话题标签。
3.  **高热度**: 生成的微博必须看起来像是热搜里的内容，所以它们的 "likes" (点赞数) 和 "comments" (评论数) 【必须】非常高。点赞数应在 10000 到 500000 之间，评论数应在 800 到 20000 之间。
4.  **评论生成**: 为每条微博生成 8 到 10 条真实感的路人评论。评论内容应与微博内容相关，风格多样。
5.  **作者多样性**: 微博的作者可以是下方"可用人物列表"中的角色，也可以是你虚构的路人、大V或官方媒体。如果让列表中的角色发言，内容必须符合他的人设。
6.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON数组，数组中包含多条微博对象。每个对象【必须】包含以下字段:
    -   "author": (字符串) 作者昵称。
    -   "content": (字符串) 微博正文，必须包含话题标签 %[1]s。
    -   "likes": (数字) 10000到500000之间的随机高赞数。
    -   "comments": (数字) 800到20000之间的随机高评论数。
    -   "comments_list": (数组) 包含8-10个评论对象的数组，每个对象格式为 {"author": "评论者昵称", "text": "评论内容"}。

# 可用人物列表 (你可以让他们发言)
%[3]s
`, topic, ContentPolicy, indentJSON(people))
}

// Plaza builds the public-square task. hotTopics, when present, steer the
// content; otherwise the model writes everyday life posts.
func Plaza(chars []model.Character, explicit bool, hotTopics []model.HotSearchItem) string {
	figures := publicFigures(chars, true)

	task := "你的任务是模拟一个真实的社交媒体广场，生成10条由不同路人发布的微博帖子。"
	if explicit && len(figures) == 1 {
		task = fmt.Sprintf("你的任务是模拟一个真实的社交媒体广场，生成10条与角色\"%s\"相关的、由不同路人发布的微博帖子。", figures[0].Name)
	} else if explicit && len(figures) > 1 {
		names := make([]string, len(figures))
		for i, f := range figures {
			names[i] = `"` + f.Name + `"`
		}
		task = fmt.Sprintf("你的任务是模拟一个真实的社交媒体广场，生成10条与角色 %s 相关的、由不同路人发布的微博帖子。", strings.Join(names, "、"))
	}

	figuresContext := ""
	if len(figures) > 0 {
		figuresContext = "# 核心参考人物 (你生成的内容【必须】围绕他们展开)\n" + indentJSON(figures)
	}

	topicsContext := "请随机生成一些生活化的日常内容。"
	if len(hotTopics) > 0 {
		topics := make([]string, len(hotTopics))
		for i, t := range hotTopics {
			topics[i] = t.Topic
		}
		topicsContext = "请围绕以下热门话题生成内容：" + strings.Join(topics, "、 ")
	}

	return fmt.Sprintf(`# 任务
你是一个"微博广场内容生成器"。%s
%s
# 核心规则
1.  **身份**: 发帖者都是普通人，昵称要生活化。
2.  **内容**: 帖子内容应是生活化的日常。%s
3.  **热度**: 赞和评论数可高可低，模拟真实世界的随机性。
4.  **【【【严禁杜撰】】】**: 如果你生成的内容提到了上方"核心参考人物"列表中的任何角色，你【绝对禁止】为他们【凭空捏造】人设中没有的职业、身份或背景。你只能根据提供的人设进行合理发挥。
5.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON数组，包含10个微博对象。每个对象的格式与"热搜Feed"的格式完全相同（包含 author, content, likes, comments, comments_list 字段）。
    - "comments_list": (数组) 包含2-5条评论对象的数组，每个对象格式为 {"author": "评论者昵称", "text": "评论内容"}。
%s
`, task, ContentPolicy, topicsContext, figuresContext)
}
