package model

import "errors"

// UserSettings is the singleton profile record for the human user.
type UserSettings struct {
	Nickname            string           `json:"nickname"`
	Avatar              string           `json:"avatar"`
	WeiboNickname       string           `json:"weiboNickname"`
	WeiboAvatar         string           `json:"weiboAvatar"`
	WeiboAvatarFrame    string           `json:"weiboAvatarFrame"`
	WeiboBackground     string           `json:"weiboBackground"`
	WeiboFansCount      string           `json:"weiboFansCount"` // free text, e.g. "3万"
	WeiboUserProfession string           `json:"weiboUserProfession"`
	WeiboUserPersona    string           `json:"weiboUserPersona"`
	PersonaPresets      []PersonaPreset  `json:"personaPresets"`
	UserDms             []DmConversation `json:"userDms"`
}

// PersonaPreset is a saved profession/persona pair.
type PersonaPreset struct {
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Persona    string `json:"persona"`
}

// Defaults applied when no settings record exists.
const (
	DefaultUserNickname     = "我"
	DefaultWeiboNickname    = "你的昵称"
	DefaultWeiboFansCount   = "0"
	DefaultWeiboProfession  = "点击设置职业"
	DefaultWeiboUserPersona = "一个普通的微博用户。"
)

// DefaultUserSettings returns a settings record with display defaults.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		Nickname:       DefaultUserNickname,
		WeiboFansCount: DefaultWeiboFansCount,
		PersonaPresets: []PersonaPreset{},
		UserDms:        []DmConversation{},
	}
}

// Normalize replaces nil sequences with empty ones.
func (s *UserSettings) Normalize() {
	if s.PersonaPresets == nil {
		s.PersonaPresets = []PersonaPreset{}
	}
	if s.UserDms == nil {
		s.UserDms = []DmConversation{}
	}
	for i := range s.UserDms {
		s.UserDms[i].Normalize()
	}
}

// LikeName is the display name recorded in a post's like set.
func (s *UserSettings) LikeName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return DefaultUserNickname
}

// DisplayName is the nickname shown on posts and comments by the user.
func (s *UserSettings) DisplayName() string {
	if s.WeiboNickname != "" {
		return s.WeiboNickname
	}
	if s.Nickname != "" {
		return s.Nickname
	}
	return DefaultUserNickname
}

// DisplayAvatar prefers the microblog avatar over the chat avatar.
func (s *UserSettings) DisplayAvatar() string {
	if s.WeiboAvatar != "" {
		return s.WeiboAvatar
	}
	return s.Avatar
}

// UpdateSettingsRequest carries editable fields. Nil means unchanged.
type UpdateSettingsRequest struct {
	Nickname            *string `json:"nickname"`
	WeiboNickname       *string `json:"weiboNickname"`
	WeiboAvatar         *string `json:"weiboAvatar"`
	WeiboAvatarFrame    *string `json:"weiboAvatarFrame"`
	WeiboBackground     *string `json:"weiboBackground"`
	WeiboFansCount      *string `json:"weiboFansCount"`
	WeiboUserProfession *string `json:"weiboUserProfession"`
	WeiboUserPersona    *string `json:"weiboUserPersona"`
}

// UserProfile is the presenter shape for the user's own page.
type UserProfile struct {
	Nickname       string `json:"nickname"`
	Avatar         string `json:"avatar"`
	AvatarFrame    string `json:"avatarFrame"`
	Background     string `json:"background"`
	Profession     string `json:"profession"`
	FansCount      string `json:"fansCount"`
	PostsCount     int    `json:"postsCount"`
	FollowingCount int    `json:"followingCount"`
}

// FollowingEntry is one row of the user's following list.
type FollowingEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	IsNPC   bool   `json:"isNpc"`
	OwnerID string `json:"ownerId,omitempty"`
}

// Settings errors
var (
	ErrPresetNameRequired = errors.New("preset name is required")
	ErrPresetNotFound     = errors.New("preset not found")
)
