package service

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"

	"weibosim/internal/model"
	"weibosim/internal/queue"
	"weibosim/internal/realtime"
	"weibosim/internal/repository"
)

// DmService handles hand-made edits to fan threads. Generated threads come
// from GenerationService.
type DmService struct {
	charRepo     repository.CharacterRepository
	settingsRepo repository.SettingsRepository
	notifier     realtime.Notifier
}

func NewDmService(
	charRepo repository.CharacterRepository,
	settingsRepo repository.SettingsRepository,
	notifier realtime.Notifier,
) *DmService {
	return &DmService{
		charRepo:     charRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
	}
}

// removeMessage drops message msgIndex of thread fanIndex, and the thread
// itself once it is empty.
func removeMessage(dms []model.DmConversation, fanIndex, msgIndex int) ([]model.DmConversation, error) {
	if fanIndex < 0 || fanIndex >= len(dms) {
		return nil, model.ErrConversationNotFound
	}
	msgs := dms[fanIndex].Messages
	if msgIndex < 0 || msgIndex >= len(msgs) {
		return nil, model.ErrMessageNotFound
	}
	dms[fanIndex].Messages = slices.Delete(msgs, msgIndex, msgIndex+1)
	if len(dms[fanIndex].Messages) == 0 {
		dms = slices.Delete(dms, fanIndex, fanIndex+1)
	}
	return dms, nil
}

// =============================================================================
// CHARACTER INBOX
// =============================================================================

// ClearCharacterDms removes every fan thread of a character.
func (s *DmService) ClearCharacterDms(ctx context.Context, charID string) error {
	c, err := s.charRepo.GetByID(ctx, charID)
	if err != nil {
		return err
	}
	c.WeiboDms = []model.DmConversation{}
	if err := s.charRepo.Put(ctx, c); err != nil {
		return fmt.Errorf("save character: %w", err)
	}
	log.Printf("[DmService] ClearCharacterDms OK: character=%s", charID)

	notify(ctx, s.notifier, "DmService", queue.NewDmsChangedEvent(charID))
	return nil
}

// DeleteCharacterDmMessage removes one message from a character's thread.
func (s *DmService) DeleteCharacterDmMessage(ctx context.Context, charID string, fanIndex, msgIndex int) ([]model.DmConversation, error) {
	c, err := s.charRepo.GetByID(ctx, charID)
	if err != nil {
		return nil, err
	}
	dms, err := removeMessage(c.WeiboDms, fanIndex, msgIndex)
	if err != nil {
		return nil, err
	}
	c.WeiboDms = dms
	if err := s.charRepo.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}
	log.Printf("[DmService] DeleteCharacterDmMessage OK: character=%s fan=%d msg=%d threads=%d",
		charID, fanIndex, msgIndex, len(c.WeiboDms))

	notify(ctx, s.notifier, "DmService", queue.NewDmsChangedEvent(charID))
	return c.WeiboDms, nil
}

// =============================================================================
// USER INBOX
// =============================================================================

// UserDms returns the user's fan threads.
func (s *DmService) UserDms(ctx context.Context) ([]model.DmConversation, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings.UserDms, nil
}

// SendUserDm appends the user's own message to a thread. The user's lines are
// stored with sender "char".
func (s *DmService) SendUserDm(ctx context.Context, fanIndex int, text string) (*model.DmConversation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrContentRequired
	}

	var conv model.DmConversation
	err := s.updateUserDms(ctx, func(dms []model.DmConversation) ([]model.DmConversation, error) {
		if fanIndex < 0 || fanIndex >= len(dms) {
			return nil, model.ErrConversationNotFound
		}
		dms[fanIndex].Messages = append(dms[fanIndex].Messages, model.DmMessage{Sender: model.SenderChar, Text: text})
		conv = dms[fanIndex]
		return dms, nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteUserDmMessage removes one message; an emptied thread goes with it.
func (s *DmService) DeleteUserDmMessage(ctx context.Context, fanIndex, msgIndex int) ([]model.DmConversation, error) {
	var out []model.DmConversation
	err := s.updateUserDms(ctx, func(dms []model.DmConversation) ([]model.DmConversation, error) {
		var err error
		out, err = removeMessage(dms, fanIndex, msgIndex)
		return out, err
	})
	return out, err
}

// DeleteUserDmConversation removes a whole thread.
func (s *DmService) DeleteUserDmConversation(ctx context.Context, fanIndex int) ([]model.DmConversation, error) {
	var out []model.DmConversation
	err := s.updateUserDms(ctx, func(dms []model.DmConversation) ([]model.DmConversation, error) {
		if fanIndex < 0 || fanIndex >= len(dms) {
			return nil, model.ErrConversationNotFound
		}
		out = slices.Delete(dms, fanIndex, fanIndex+1)
		return out, nil
	})
	return out, err
}

// ClearUserDms empties the user's inbox.
func (s *DmService) ClearUserDms(ctx context.Context) error {
	return s.updateUserDms(ctx, func([]model.DmConversation) ([]model.DmConversation, error) {
		return []model.DmConversation{}, nil
	})
}

func (s *DmService) updateUserDms(ctx context.Context, fn func([]model.DmConversation) ([]model.DmConversation, error)) error {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	dms, err := fn(settings.UserDms)
	if err != nil {
		return err
	}
	settings.UserDms = dms
	if err := s.settingsRepo.Put(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	log.Printf("[DmService] User inbox updated: threads=%d", len(dms))

	notify(ctx, s.notifier, "DmService", queue.NewViewEvent(queue.EventUserDmsChanged))
	return nil
}
