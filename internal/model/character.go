package model

import "errors"

// Character is a roleplay chat partner. Group chats are stored too but never
// act as public figures.
type Character struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	IsGroup    bool              `json:"isGroup"`
	Settings   CharacterSettings `json:"settings"`
	NPCLibrary []NPC             `json:"npcLibrary"`
	WeiboDms   []DmConversation  `json:"weiboDms"`
}

// CharacterSettings holds persona and microblog profile fields.
type CharacterSettings struct {
	AIPersona           string `json:"aiPersona"`
	AIAvatar            string `json:"aiAvatar"`
	WeiboProfession     string `json:"weiboProfession"`
	WeiboInstruction    string `json:"weiboInstruction"`
	WeiboNickname       string `json:"weiboNickname"`
	WeiboAvatar         string `json:"weiboAvatar"`
	WeiboAvatarFrame    string `json:"weiboAvatarFrame"`
	WeiboBackground     string `json:"weiboBackground"`
	WeiboFansCount      int    `json:"weiboFansCount"`
	WeiboFollowingCount int    `json:"weiboFollowingCount"`
}

// NPC is a side character owned by a Character.
type NPC struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Persona string `json:"persona"`
	Avatar  string `json:"avatar"`
}

// Normalize replaces nil sequences with empty ones.
func (c *Character) Normalize() {
	if c.NPCLibrary == nil {
		c.NPCLibrary = []NPC{}
	}
	if c.WeiboDms == nil {
		c.WeiboDms = []DmConversation{}
	}
	for i := range c.WeiboDms {
		c.WeiboDms[i].Normalize()
	}
}

// FindNPC returns the NPC with id, if owned by c.
func (c *Character) FindNPC(id string) (NPC, bool) {
	for _, n := range c.NPCLibrary {
		if n.ID == id {
			return n, true
		}
	}
	return NPC{}, false
}

// DisplayNickname is the name shown on the character's profile.
func (c *Character) DisplayNickname() string {
	if c.Settings.WeiboNickname != "" {
		return c.Settings.WeiboNickname
	}
	return c.Name
}

// CharacterProfileUpdate carries editable profile fields. Nil means unchanged.
type CharacterProfileUpdate struct {
	WeiboNickname       *string `json:"weiboNickname"`
	WeiboAvatar         *string `json:"weiboAvatar"`
	WeiboAvatarFrame    *string `json:"weiboAvatarFrame"`
	WeiboBackground     *string `json:"weiboBackground"`
	WeiboProfession     *string `json:"weiboProfession"`
	WeiboFansCount      *string `json:"weiboFansCount"`      // accepts "3.5万"
	WeiboFollowingCount *string `json:"weiboFollowingCount"` // accepts "1200"
}

// CharacterProfile is the presenter shape for a character's page.
type CharacterProfile struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	Avatar         string `json:"avatar"`
	AvatarFrame    string `json:"avatarFrame"`
	Background     string `json:"background"`
	Profession     string `json:"profession"`
	PostsCount     int    `json:"postsCount"`
	FansCount      string `json:"fansCount"`
	FollowingCount string `json:"followingCount"`
}

// DefaultCharacterProfession is shown when a character has no profession.
const DefaultCharacterProfession = "职业未设定"

// Character errors
var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrNPCNotFound       = errors.New("npc not found")
	ErrInvalidCharacter  = errors.New("character id and name are required")
)
