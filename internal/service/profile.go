package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"weibosim/internal/model"
	"weibosim/internal/numfmt"
	"weibosim/internal/queue"
	"weibosim/internal/realtime"
	"weibosim/internal/repository"
)

// publicFigureKeywords mark a persona or profession as a public figure.
var publicFigureKeywords = []string{"偶像", "明星", "演员", "歌手", "博主", "网红", "UP主", "主播", "选手", "画家", "作家"}

// ProfileService handles the user's profile and character profiles.
type ProfileService struct {
	postRepo     repository.PostRepository
	charRepo     repository.CharacterRepository
	settingsRepo repository.SettingsRepository
	notifier     realtime.Notifier
	rand         func() float64
}

func NewProfileService(
	postRepo repository.PostRepository,
	charRepo repository.CharacterRepository,
	settingsRepo repository.SettingsRepository,
	notifier realtime.Notifier,
) *ProfileService {
	return &ProfileService{
		postRepo:     postRepo,
		charRepo:     charRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		rand:         defaultRand,
	}
}

// =============================================================================
// USER PROFILE
// =============================================================================

// UserProfile assembles the user's page. Following counts every single chat
// partner plus the NPCs they own.
func (s *ProfileService) UserProfile(ctx context.Context) (*model.UserProfile, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	posts, err := s.postRepo.CountByAuthor(ctx, model.UserAuthorID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	following, err := s.FollowingList(ctx)
	if err != nil {
		return nil, err
	}

	profile := &model.UserProfile{
		Nickname:       settings.WeiboNickname,
		Avatar:         settings.WeiboAvatar,
		AvatarFrame:    settings.WeiboAvatarFrame,
		Background:     settings.WeiboBackground,
		Profession:     settings.WeiboUserProfession,
		FansCount:      settings.WeiboFansCount,
		PostsCount:     posts,
		FollowingCount: len(following),
	}
	if profile.Nickname == "" {
		profile.Nickname = model.DefaultWeiboNickname
	}
	if profile.Profession == "" {
		profile.Profession = model.DefaultWeiboProfession
	}
	if profile.FansCount == "" {
		profile.FansCount = model.DefaultWeiboFansCount
	}
	return profile, nil
}

// Settings returns the raw settings record.
func (s *ProfileService) Settings(ctx context.Context) (*model.UserSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// UpdateUserSettings applies the non-nil fields of req.
func (s *ProfileService) UpdateUserSettings(ctx context.Context, req model.UpdateSettingsRequest) (*model.UserProfile, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&settings.Nickname, req.Nickname)
	set(&settings.WeiboNickname, req.WeiboNickname)
	set(&settings.WeiboAvatar, req.WeiboAvatar)
	set(&settings.WeiboAvatarFrame, req.WeiboAvatarFrame)
	set(&settings.WeiboBackground, req.WeiboBackground)
	set(&settings.WeiboUserProfession, req.WeiboUserProfession)
	set(&settings.WeiboUserPersona, req.WeiboUserPersona)
	if req.WeiboFansCount != nil {
		settings.WeiboFansCount = strings.TrimSpace(*req.WeiboFansCount)
		if settings.WeiboFansCount == "" {
			settings.WeiboFansCount = model.DefaultWeiboFansCount
		}
	}

	if err := s.settingsRepo.Put(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	log.Printf("[ProfileService] UpdateUserSettings OK")

	notify(ctx, s.notifier, "ProfileService", queue.NewViewEvent(queue.EventProfileChanged))
	return s.UserProfile(ctx)
}

// SavePreset appends preset to the user's saved persona presets.
func (s *ProfileService) SavePreset(ctx context.Context, preset model.PersonaPreset) ([]model.PersonaPreset, error) {
	preset.Name = strings.TrimSpace(preset.Name)
	if preset.Name == "" {
		return nil, model.ErrPresetNameRequired
	}
	preset.Profession = strings.TrimSpace(preset.Profession)
	preset.Persona = strings.TrimSpace(preset.Persona)

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	settings.PersonaPresets = append(settings.PersonaPresets, preset)
	if err := s.settingsRepo.Put(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	log.Printf("[ProfileService] SavePreset OK: name=%q total=%d", preset.Name, len(settings.PersonaPresets))
	return settings.PersonaPresets, nil
}

// DeletePreset removes the preset at index.
func (s *ProfileService) DeletePreset(ctx context.Context, index int) ([]model.PersonaPreset, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if index < 0 || index >= len(settings.PersonaPresets) {
		return nil, model.ErrPresetNotFound
	}
	settings.PersonaPresets = append(settings.PersonaPresets[:index], settings.PersonaPresets[index+1:]...)
	if err := s.settingsRepo.Put(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	log.Printf("[ProfileService] DeletePreset OK: index=%d total=%d", index, len(settings.PersonaPresets))
	return settings.PersonaPresets, nil
}

// FollowingList lists every single chat partner followed by the NPCs it owns.
func (s *ProfileService) FollowingList(ctx context.Context) ([]model.FollowingEntry, error) {
	chars, err := s.charRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	entries := []model.FollowingEntry{}
	for _, c := range chars {
		if c.IsGroup {
			continue
		}
		avatar := c.Settings.WeiboAvatar
		if avatar == "" {
			avatar = c.Settings.AIAvatar
		}
		entries = append(entries, model.FollowingEntry{ID: c.ID, Name: c.DisplayNickname(), Avatar: avatar})
		for _, npc := range c.NPCLibrary {
			entries = append(entries, model.FollowingEntry{
				ID:      npc.ID,
				Name:    npc.Name,
				Avatar:  npc.Avatar,
				IsNPC:   true,
				OwnerID: c.ID,
			})
		}
	}
	return entries, nil
}

// =============================================================================
// CHARACTERS
// =============================================================================

// ListCharacters returns every stored chat partner.
func (s *ProfileService) ListCharacters(ctx context.Context) ([]model.Character, error) {
	chars, err := s.charRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return chars, nil
}

// UpsertCharacter stores a chat partner pushed by the host. Fan threads and
// microblog counters already on record survive when c omits them; counters
// still unset are seeded from the persona.
func (s *ProfileService) UpsertCharacter(ctx context.Context, c model.Character) (*model.Character, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" || c.Name == "" {
		return nil, model.ErrInvalidCharacter
	}

	if existing, err := s.charRepo.GetByID(ctx, c.ID); err == nil {
		if c.WeiboDms == nil {
			c.WeiboDms = existing.WeiboDms
		}
		if c.Settings.WeiboFansCount == 0 && c.Settings.WeiboFollowingCount == 0 {
			c.Settings.WeiboFansCount = existing.Settings.WeiboFansCount
			c.Settings.WeiboFollowingCount = existing.Settings.WeiboFollowingCount
		}
	}
	if c.Settings.WeiboFansCount == 0 && c.Settings.WeiboFollowingCount == 0 {
		c.Settings.WeiboFansCount, c.Settings.WeiboFollowingCount = s.initialStats(c)
	}
	c.Normalize()

	if err := s.charRepo.Put(ctx, &c); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}
	log.Printf("[ProfileService] UpsertCharacter OK: id=%s fans=%d following=%d",
		c.ID, c.Settings.WeiboFansCount, c.Settings.WeiboFollowingCount)

	notify(ctx, s.notifier, "ProfileService", queue.NewViewEvent(queue.EventProfileChanged))
	return &c, nil
}

// initialStats picks plausible counters: public figures get 100k-10M fans.
func (s *ProfileService) initialStats(c model.Character) (fans, following int) {
	text := c.Settings.AIPersona + c.Settings.WeiboProfession
	for _, k := range publicFigureKeywords {
		if strings.Contains(text, k) {
			return floorInt(100000 + s.rand()*9900000), floorInt(50 + s.rand()*450)
		}
	}
	return floorInt(100 + s.rand()*4900), floorInt(50 + s.rand()*250)
}

// CharacterProfile assembles a character's page.
func (s *ProfileService) CharacterProfile(ctx context.Context, id string) (*model.CharacterProfile, error) {
	c, err := s.charRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.CountByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	profile := &model.CharacterProfile{
		ID:             c.ID,
		Nickname:       c.DisplayNickname(),
		Avatar:         c.Settings.WeiboAvatar,
		AvatarFrame:    c.Settings.WeiboAvatarFrame,
		Background:     c.Settings.WeiboBackground,
		Profession:     c.Settings.WeiboProfession,
		PostsCount:     posts,
		FansCount:      numfmt.FormatChinese(int64(c.Settings.WeiboFansCount)),
		FollowingCount: numfmt.FormatChinese(int64(c.Settings.WeiboFollowingCount)),
	}
	if profile.Avatar == "" {
		profile.Avatar = c.Settings.AIAvatar
	}
	if profile.Profession == "" {
		profile.Profession = model.DefaultCharacterProfession
	}
	return profile, nil
}

// UpdateCharacterProfile applies the non-nil fields of req. Counters accept
// Chinese magnitudes such as "3.5万".
func (s *ProfileService) UpdateCharacterProfile(ctx context.Context, id string, req model.CharacterProfileUpdate) (*model.CharacterProfile, error) {
	c, err := s.charRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Settings.WeiboNickname, req.WeiboNickname)
	set(&c.Settings.WeiboAvatar, req.WeiboAvatar)
	set(&c.Settings.WeiboAvatarFrame, req.WeiboAvatarFrame)
	set(&c.Settings.WeiboBackground, req.WeiboBackground)
	set(&c.Settings.WeiboProfession, req.WeiboProfession)
	if req.WeiboFansCount != nil {
		c.Settings.WeiboFansCount = int(numfmt.ParseChinese(*req.WeiboFansCount))
	}
	if req.WeiboFollowingCount != nil {
		c.Settings.WeiboFollowingCount = int(numfmt.ParseChinese(*req.WeiboFollowingCount))
	}

	if err := s.charRepo.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}
	log.Printf("[ProfileService] UpdateCharacterProfile OK: id=%s", id)

	notify(ctx, s.notifier, "ProfileService", queue.NewViewEvent(queue.EventProfileChanged))
	return s.CharacterProfile(ctx, id)
}

// DeleteCharacter removes a chat partner. Their posts stay in the feed.
func (s *ProfileService) DeleteCharacter(ctx context.Context, id string) error {
	if err := s.charRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[ProfileService] DeleteCharacter OK: id=%s", id)

	notify(ctx, s.notifier, "ProfileService", queue.NewViewEvent(queue.EventProfileChanged))
	return nil
}
