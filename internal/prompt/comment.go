package prompt

import (
	"fmt"
	"strings"

	"weibosim/internal/model"
)

// CommentContext is everything the comment task reads about one post.
type CommentContext struct {
	Post model.Post
	// UserNickname is the user's display name; the model must never reply
	// to comments written under it.
	UserNickname string
	// AuthorName, AuthorPersona and AuthorProfession describe the poster.
	AuthorName       string
	AuthorPersona    string
	AuthorProfession string
	// Characters are looked up by name to describe existing commenters.
	Characters []model.Character
}

// Comments builds the task for a batch of replies under one post.
func Comments(c CommentContext) string {
	content := Truncate(c.Post.Content, PostContentBudget)
	if content == "" {
		content = "(该微博没有配文)"
	}

	recent := c.Post.Comments
	if len(recent) > RecentCommentsShown {
		recent = recent[len(recent)-RecentCommentsShown:]
	}
	lines := make([]string, 0, len(recent))
	for _, cm := range recent {
		lines = append(lines, cm.AuthorNickname+": "+cm.CommentText)
	}
	existing := strings.Join(lines, "\n")
	if existing == "" {
		existing = "(暂无评论)"
	}

	imageContext := ""
	if c.Post.ImageURL != "" && c.Post.ImageDescription != "" {
		imageContext = fmt.Sprintf("- **图片内容**: 这条微博配有一张图片，描述为：\"%s\"", c.Post.ImageDescription)
	} else if c.Post.PostType == model.PostTypeTextImage && c.Post.HiddenContent != "" {
		imageContext = fmt.Sprintf("- **图片内容**: 这是一张文字图，上面的内容是：\"%s\"", c.Post.HiddenContent)
	}

	return fmt.Sprintf(`# 任务
你是一个专业的"社交媒体模拟器"。你的任务是根据一个特定角色的"人设"，为他/她发布的一条微博生成一批真实的、符合情景的网友评论。
%[1]s

# 微博情景
- **作者**: %[2]s
- **微博文字**: %[3]s
%[4]s
- **已有评论 (你可以回复他们)**:
%[5]s
%[6]s
# 【【【评论生成核心规则】】】
1.  **【【【回复禁令】】】**: 绝对禁止回复昵称为"**%[7]s**"的任何评论。这是最高优先级的规则，因为用户会自己回复。你可以回复其他任何人的评论。
2.  **【【【严禁使用】】】**: 绝对禁止使用 "路人甲"、"网友A"、"粉丝B" 这类代号作为评论者昵称。
3.  **昵称多样化**: 评论者的昵称必须非常真实、多样化且符合微博生态。例如："今天也要早睡"、"可乐加冰块"、"是小王不是小张"、"理性吃瓜第一线"。
4.  **内容与人设强相关**: 评论内容必须与【微博内容(包括文字和图片)】和【作者以及被回复者的人设】高度相关。思考：什么样的粉丝会关注这样的人？他们会怎么说话？当回复一个有特定人设的角色时，你的回复必须考虑到对方的身份。
5.  **风格多样化**: 生成的评论应包含不同立场和风格，例如：
    -   **粉丝**: "哥哥太帅了！新剧什么时候播？"
    -   **路人**: "这个地方看起来不错，求地址！"
    -   **黑粉/质疑者**: "就这？感觉p图有点过了吧..."
    -   **玩梗**: "楼上是不是XX派来的间谍（狗头）"
6.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON数组，每个对象代表一条评论。
    -   发表新评论, 使用格式: {"author": "不吃香菜的仙女", "comment": "哇，这个好好看！"}
    -   回复已有评论, 使用格式: {"author": "爱吃瓜的猹", "comment": "我也觉得！", "replyTo": "不吃香菜的仙女"}

现在，请开始你的表演。
`, ContentPolicy, c.AuthorName, content, imageContext, existing, commenterContext(c), c.UserNickname)
}

// commenterContext lists the author and every known character already in
// the thread, in first-appearance order.
func commenterContext(c CommentContext) string {
	type entry struct{ name, desc string }
	seen := map[string]bool{}
	var entries []entry

	authorPersona := Truncate(orDefault(c.AuthorPersona, defaultAuthorPerson), AuthorPersonaBudget)
	entries = append(entries, entry{c.AuthorName, fmt.Sprintf("[职业: %s] [人设: %s]",
		orDefault(c.AuthorProfession, unsetProfession), authorPersona)})
	seen[c.AuthorName] = true

	for _, cm := range c.Post.Comments {
		name := cm.AuthorNickname
		if seen[name] {
			continue
		}
		for _, ch := range c.Characters {
			if ch.Name != name || ch.IsGroup {
				continue
			}
			persona := Truncate(orDefault(ch.Settings.AIPersona, noneText), CommenterBudget)
			entries = append(entries, entry{name, fmt.Sprintf("[职业: %s] [人设: %s]",
				orDefault(ch.Settings.WeiboProfession, unsetProfession), persona)})
			seen[name] = true
			break
		}
	}

	var b strings.Builder
	b.WriteString("\n# 评论区已有角色人设 (供你回复时参考)\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- **%s**: %s\n", e.name, e.desc)
	}
	return b.String()
}

// ActionTarget is the character or NPC a user asked to act.
type ActionTarget struct {
	ID          string
	Name        string
	Persona     string
	Profession  string
	Instruction string
}

func identity(t ActionTarget, hint string) string {
	return fmt.Sprintf(`# 你的身份信息
- **你的名字**: %s
- **你的职业**: %s
- **你的人设**: %s
- **你的微博指令 (必须遵守)**: %s
- **用户给你的提示 (可选参考)**: %s`,
		t.Name,
		orDefault(t.Profession, unsetProfession),
		t.Persona,
		orDefault(t.Instruction, noneText),
		orDefault(hint, noneText))
}

// ActAsCharacterPost builds the task for a character writing a new post of
// its own, comments included.
func ActAsCharacterPost(t ActionTarget, hint string) string {
	return fmt.Sprintf(`# 任务: 角色扮演与微博创作
你现在【就是】角色"%s"。
你的任务是根据你的身份信息，创作一条全新的微博。
%s
%s
# 【【【评论生成核心规则】】】
1.  **【【【严禁使用】】】**: 绝对禁止使用 "路人甲"、"网友A"、"粉丝B" 这类代号作为评论者昵称。
2.  **昵称多样化**: 评论者的昵称必须非常真实、多样化且符合微博生态。例如："今天也要早睡"、"可乐加冰块"、"是小王不是小张"、"理性吃瓜第一线"。
3.  **内容与人设强相关**: 评论内容必须与【你即将创作的微博内容】和【你自己的人设】高度相关。
4.  **格式铁律**: 你的回复【必须且只能】是一个严格的JSON对象，格式如下:
{"content": "微博正文内容...", "baseLikesCount": 随机生成的点赞数, "baseCommentsCount": 随机生成的评论数, "comments": "今天也要早睡: 评论1...\n可乐加冰块: 评论2..."}
- 点赞和评论数要符合你的身份地位。
- "comments"字段是一个【字符串】，里面包含5-10条真实感的路人评论，每条评论用换行符'\n'分隔。
`, t.Name, identity(t, hint), ContentPolicy)
}

// ActAsCharacterComment builds the task for a character commenting on post.
// action selects the wording: the newest plaza post or the user's newest post.
func ActAsCharacterComment(t ActionTarget, hint string, post model.Post, action model.ActionType) string {
	task := "你的任务是根据你的身份信息，去评论下面这条最新的【广场微博】。"
	if action == model.ActionCommentUser {
		task = "你的任务是根据你的身份信息，去评论下面这条由【用户】发布的最新微博。"
	}

	author := post.AuthorNickname
	if author == "{{user}}" {
		author = model.DefaultUserNickname
	}

	return fmt.Sprintf(`# 任务: 角色扮演与微博评论
你现在【就是】角色"%s"。
%s
%s
%s
# 被评论的微博
- 作者: %s
- 内容: %s
# 核心规则
1. **深度扮演**: 你的评论【必须】完全符合你的职业、人设和微博指令。
2. **格式铁律**: 你的回复【必须且只能】是一个严格的JSON对象，格式如下:
{"commentText": "你的评论内容..."}
`, t.Name, task, identity(t, hint), ContentPolicy, author, post.Content)
}
