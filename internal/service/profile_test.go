package service

import (
	"context"
	"errors"
	"testing"

	"weibosim/internal/model"
)

func newTestProfileService(posts *mockPostRepository, chars *mockCharacterRepository, settings *mockSettingsRepository) *ProfileService {
	svc := NewProfileService(posts, chars, settings, &mockNotifier{})
	svc.rand = fixedRand(0.5)
	return svc
}

func strPtr(s string) *string { return &s }

// =============================================================================
// USER PROFILE TESTS
// =============================================================================

func TestProfileService_UserProfile_Defaults(t *testing.T) {
	// ARRANGE: one single chat partner with an NPC, plus a group chat
	chars := newMockCharacterRepository(
		model.Character{ID: "c1", Name: "阿梨", NPCLibrary: []model.NPC{{ID: "n1", Name: "小跟班"}}},
		model.Character{ID: "g1", Name: "群聊", IsGroup: true},
	)
	posts := newMockPostRepository()
	seedUserPost(t, posts, 0)
	svc := newTestProfileService(posts, chars, newMockSettingsRepository(nil))

	// ACT
	profile, err := svc.UserProfile(context.Background())

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if profile.Nickname != model.DefaultWeiboNickname {
		t.Errorf("nickname = %q, want %q", profile.Nickname, model.DefaultWeiboNickname)
	}
	if profile.Profession != model.DefaultWeiboProfession {
		t.Errorf("profession = %q, want %q", profile.Profession, model.DefaultWeiboProfession)
	}
	if profile.FansCount != "0" {
		t.Errorf("fans = %q, want 0", profile.FansCount)
	}
	if profile.PostsCount != 1 {
		t.Errorf("posts = %d, want 1", profile.PostsCount)
	}
	if profile.FollowingCount != 2 {
		t.Errorf("following = %d, want 2 (character plus its npc)", profile.FollowingCount)
	}
}

func TestProfileService_FollowingList(t *testing.T) {
	chars := newMockCharacterRepository(
		model.Character{ID: "c1", Name: "阿梨", Settings: model.CharacterSettings{WeiboNickname: "梨子", AIAvatar: "ai.png"},
			NPCLibrary: []model.NPC{{ID: "n1", Name: "小跟班", Avatar: "npc.png"}}},
		model.Character{ID: "g1", Name: "群聊", IsGroup: true},
	)
	svc := newTestProfileService(newMockPostRepository(), chars, newMockSettingsRepository(nil))

	entries, err := svc.FollowingList(context.Background())

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0].Name != "梨子" || entries[0].Avatar != "ai.png" || entries[0].IsNPC {
		t.Errorf("character entry = %+v", entries[0])
	}
	if !entries[1].IsNPC || entries[1].OwnerID != "c1" {
		t.Errorf("npc entry = %+v, want npc owned by c1", entries[1])
	}
}

func TestProfileService_UpdateUserSettings(t *testing.T) {
	settings := newMockSettingsRepository(nil)
	svc := newTestProfileService(newMockPostRepository(), newMockCharacterRepository(), settings)

	profile, err := svc.UpdateUserSettings(context.Background(), model.UpdateSettingsRequest{
		WeiboNickname:  strPtr("  小明 "),
		WeiboFansCount: strPtr(" "),
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if profile.Nickname != "小明" {
		t.Errorf("nickname = %q, want trimmed 小明", profile.Nickname)
	}
	stored, _ := settings.Get(context.Background())
	if stored.WeiboFansCount != model.DefaultWeiboFansCount {
		t.Errorf("fans = %q, want default when cleared", stored.WeiboFansCount)
	}
	if stored.Nickname != model.DefaultUserNickname {
		t.Errorf("chat nickname = %q, want untouched default", stored.Nickname)
	}
}

func TestProfileService_Presets(t *testing.T) {
	svc := newTestProfileService(newMockPostRepository(), newMockCharacterRepository(), newMockSettingsRepository(nil))
	ctx := context.Background()

	if _, err := svc.SavePreset(ctx, model.PersonaPreset{Name: " "}); !errors.Is(err, model.ErrPresetNameRequired) {
		t.Errorf("error = %v, want ErrPresetNameRequired", err)
	}

	if _, err := svc.SavePreset(ctx, model.PersonaPreset{Name: "学生", Persona: "大二"}); err != nil {
		t.Fatalf("save first: %v", err)
	}
	presets, err := svc.SavePreset(ctx, model.PersonaPreset{Name: "学生", Persona: "大三"})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if len(presets) != 2 {
		t.Errorf("presets = %d, want 2 (same name appends)", len(presets))
	}

	presets, err = svc.DeletePreset(ctx, 0)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(presets) != 1 || presets[0].Persona != "大三" {
		t.Errorf("presets = %+v, want only 大三", presets)
	}

	if _, err := svc.DeletePreset(ctx, 5); !errors.Is(err, model.ErrPresetNotFound) {
		t.Errorf("error = %v, want ErrPresetNotFound", err)
	}
}

// =============================================================================
// CHARACTER TESTS
// =============================================================================

func TestProfileService_UpsertCharacter_SeedsStats(t *testing.T) {
	tests := []struct {
		name          string
		persona       string
		wantFans      int
		wantFollowing int
	}{
		{name: "public figure", persona: "当红歌手", wantFans: 5_050_000, wantFollowing: 275},
		{name: "ordinary", persona: "普通上班族", wantFans: 2_550, wantFollowing: 175},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestProfileService(newMockPostRepository(), newMockCharacterRepository(), newMockSettingsRepository(nil))

			c, err := svc.UpsertCharacter(context.Background(), model.Character{
				ID: "c1", Name: "阿梨", Settings: model.CharacterSettings{AIPersona: tt.persona},
			})

			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if c.Settings.WeiboFansCount != tt.wantFans || c.Settings.WeiboFollowingCount != tt.wantFollowing {
				t.Errorf("stats = %d/%d, want %d/%d", c.Settings.WeiboFansCount, c.Settings.WeiboFollowingCount,
					tt.wantFans, tt.wantFollowing)
			}
		})
	}
}

func TestProfileService_UpsertCharacter_KeepsExisting(t *testing.T) {
	chars := newMockCharacterRepository(model.Character{
		ID:       "c1",
		Name:     "阿梨",
		Settings: model.CharacterSettings{WeiboFansCount: 42, WeiboFollowingCount: 7},
		WeiboDms: []model.DmConversation{{FanName: "老粉", Messages: []model.DmMessage{{Sender: model.SenderFan, Text: "hi"}}}},
	})
	svc := newTestProfileService(newMockPostRepository(), chars, newMockSettingsRepository(nil))

	c, err := svc.UpsertCharacter(context.Background(), model.Character{
		ID: "c1", Name: "阿梨改名", Settings: model.CharacterSettings{AIPersona: "当红歌手"},
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.Name != "阿梨改名" {
		t.Errorf("name = %q, want updated", c.Name)
	}
	if c.Settings.WeiboFansCount != 42 || c.Settings.WeiboFollowingCount != 7 {
		t.Errorf("stats = %d/%d, want kept 42/7", c.Settings.WeiboFansCount, c.Settings.WeiboFollowingCount)
	}
	if len(c.WeiboDms) != 1 {
		t.Errorf("dms = %+v, want the stored thread kept", c.WeiboDms)
	}
}

func TestProfileService_UpsertCharacter_Invalid(t *testing.T) {
	svc := newTestProfileService(newMockPostRepository(), newMockCharacterRepository(), newMockSettingsRepository(nil))

	_, err := svc.UpsertCharacter(context.Background(), model.Character{ID: "c1"})

	if !errors.Is(err, model.ErrInvalidCharacter) {
		t.Errorf("error = %v, want ErrInvalidCharacter", err)
	}
}

func TestProfileService_CharacterProfile_ParseAndFormat(t *testing.T) {
	chars := newMockCharacterRepository(model.Character{ID: "c1", Name: "阿梨", Settings: model.CharacterSettings{AIAvatar: "ai.png"}})
	svc := newTestProfileService(newMockPostRepository(), chars, newMockSettingsRepository(nil))
	ctx := context.Background()

	profile, err := svc.UpdateCharacterProfile(ctx, "c1", model.CharacterProfileUpdate{
		WeiboFansCount:      strPtr("3.5万"),
		WeiboFollowingCount: strPtr("1200"),
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if profile.FansCount != "3.5万" || profile.FollowingCount != "1200" {
		t.Errorf("counts = %s/%s, want 3.5万/1200", profile.FansCount, profile.FollowingCount)
	}
	if profile.Nickname != "阿梨" || profile.Avatar != "ai.png" {
		t.Errorf("nickname/avatar = %s/%s, want name and chat avatar fallbacks", profile.Nickname, profile.Avatar)
	}
	if profile.Profession != model.DefaultCharacterProfession {
		t.Errorf("profession = %q, want %q", profile.Profession, model.DefaultCharacterProfession)
	}
	stored, _ := chars.GetByID(ctx, "c1")
	if stored.Settings.WeiboFansCount != 35000 {
		t.Errorf("stored fans = %d, want 35000", stored.Settings.WeiboFansCount)
	}
}

func TestProfileService_CharacterProfile_NotFound(t *testing.T) {
	svc := newTestProfileService(newMockPostRepository(), newMockCharacterRepository(), newMockSettingsRepository(nil))

	_, err := svc.CharacterProfile(context.Background(), "nobody")

	if !errors.Is(err, model.ErrCharacterNotFound) {
		t.Errorf("error = %v, want ErrCharacterNotFound", err)
	}
}
