package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"weibosim/internal/completion"
	"weibosim/internal/model"
	"weibosim/internal/prompt"
	"weibosim/internal/queue"
)

// replyTemperature is used for fan replies in the user's inbox.
const replyTemperature = 1.0

// Keys a provider may wrap a thread list in. "messages" is left out: it is
// a field of a single thread.
var dmListKeys = []string{"dms", "conversations", "weiboDms", "userDms"}

// =============================================================================
// CHARACTER INBOX
// =============================================================================

// CharacterDms returns the fan threads of character id. Persisted threads are
// returned as-is unless addMore is set; otherwise the provider writes new
// ones, which replace or extend the stored list.
func (s *GenerationService) CharacterDms(ctx context.Context, id string, addMore bool) ([]model.DmConversation, error) {
	c, err := s.charRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !addMore && len(c.WeiboDms) > 0 {
		return c.WeiboDms, nil
	}

	startTime := time.Now()
	ctx, run := s.startTask(ctx, "character_dms",
		attribute.String("character.id", id),
		attribute.Bool("add_more", addMore),
	)

	dms, err := s.generateCharacterDms(ctx, c, addMore)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] CharacterDms FAILED: character=%s err=%v", id, err)
		return nil, err
	}

	log.Printf("[GenerationService] CharacterDms OK: character=%s threads=%d add_more=%v duration=%v",
		id, len(dms), addMore, time.Since(startTime))
	return dms, nil
}

func (s *GenerationService) generateCharacterDms(ctx context.Context, c *model.Character, addMore bool) ([]model.DmConversation, error) {
	if s.provider == nil {
		return nil, model.ErrConfigMissing
	}

	text, err := s.complete(ctx, prompt.CharacterDms(*c, addMore), completion.Options{JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("character dms: %w", err)
	}
	fresh, err := decodeConversations(text)
	if err != nil {
		return nil, fmt.Errorf("character dms: %w", err)
	}
	for i := range fresh {
		fresh[i].FanAvatarURL = model.FanAvatarPool[i%len(model.FanAvatarPool)]
	}

	// Merge into the stored record as it is now, not as it was before the call.
	latest, err := s.charRepo.GetByID(ctx, c.ID)
	if errors.Is(err, model.ErrCharacterNotFound) {
		log.Printf("[GenerationService] CharacterDms skipped: character=%s removed during generation", c.ID)
		return []model.DmConversation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload character: %w", err)
	}

	if addMore {
		latest.WeiboDms = append(latest.WeiboDms, fresh...)
	} else {
		latest.WeiboDms = fresh
	}
	if err := s.charRepo.Put(ctx, latest); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}
	notify(ctx, s.notifier, "GenerationService", queue.NewDmsChangedEvent(latest.ID))
	return latest.WeiboDms, nil
}

// =============================================================================
// USER INBOX
// =============================================================================

// GenerateUserDms fills the user's inbox with fan threads. Replacing a
// non-empty inbox requires req.ConfirmOverwrite.
func (s *GenerationService) GenerateUserDms(ctx context.Context, req model.GenerateUserDmsRequest) ([]model.DmConversation, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if !req.AddMore && len(settings.UserDms) > 0 && !req.ConfirmOverwrite {
		return nil, model.ErrOverwriteNotConfirmed
	}

	startTime := time.Now()
	ctx, run := s.startTask(ctx, "user_dms", attribute.Bool("add_more", req.AddMore))

	dms, err := s.generateUserDms(ctx, settings, req.AddMore)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] GenerateUserDms FAILED: err=%v", err)
		return nil, err
	}

	log.Printf("[GenerationService] GenerateUserDms OK: threads=%d add_more=%v duration=%v",
		len(dms), req.AddMore, time.Since(startTime))
	return dms, nil
}

func (s *GenerationService) generateUserDms(ctx context.Context, settings *model.UserSettings, addMore bool) ([]model.DmConversation, error) {
	if s.provider == nil {
		return nil, model.ErrConfigMissing
	}

	text, err := s.complete(ctx, prompt.UserDms(*settings, addMore), completion.Options{JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("user dms: %w", err)
	}
	fresh, err := decodeConversations(text)
	if err != nil {
		return nil, fmt.Errorf("user dms: %w", err)
	}
	for i := range fresh {
		if fresh[i].FanAvatarURL == "" {
			fresh[i].FanAvatarURL = model.FanAvatarPool[i%len(model.FanAvatarPool)]
		}
	}

	latest, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload settings: %w", err)
	}
	if addMore {
		latest.UserDms = append(latest.UserDms, fresh...)
	} else {
		latest.UserDms = fresh
	}
	if err := s.settingsRepo.Put(ctx, latest); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	notify(ctx, s.notifier, "GenerationService", queue.NewViewEvent(queue.EventUserDmsChanged))
	return latest.UserDms, nil
}

// TriggerUserDmReply asks the fan of thread fanIndex to answer and appends
// the reply.
func (s *GenerationService) TriggerUserDmReply(ctx context.Context, fanIndex int) (*model.DmConversation, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if fanIndex < 0 || fanIndex >= len(settings.UserDms) {
		return nil, model.ErrConversationNotFound
	}

	startTime := time.Now()
	ctx, run := s.startTask(ctx, "user_dm_reply", attribute.Int("fan.index", fanIndex))

	conv, err := s.appendFanReply(ctx, settings, fanIndex, settings.UserDms[fanIndex].Messages, -1)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] TriggerUserDmReply FAILED: fan=%d err=%v", fanIndex, err)
		return nil, err
	}

	log.Printf("[GenerationService] TriggerUserDmReply OK: fan=%d messages=%d duration=%v",
		fanIndex, len(conv.Messages), time.Since(startTime))
	return conv, nil
}

// RerollUserDm discards the fan's latest message, along with anything the
// user wrote after it, and asks for a new reply. The store is left untouched
// when generation fails.
func (s *GenerationService) RerollUserDm(ctx context.Context, fanIndex int) (*model.DmConversation, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if fanIndex < 0 || fanIndex >= len(settings.UserDms) {
		return nil, model.ErrConversationNotFound
	}

	msgs := settings.UserDms[fanIndex].Messages
	i := len(msgs) - 1
	for i >= 0 && msgs[i].Sender == model.SenderChar {
		i--
	}
	if i < 0 || msgs[i].Sender != model.SenderFan {
		return nil, model.ErrRerollUnavailable
	}
	kept := append([]model.DmMessage{}, msgs[:i]...)

	startTime := time.Now()
	ctx, run := s.startTask(ctx, "user_dm_reroll", attribute.Int("fan.index", fanIndex))

	conv, err := s.appendFanReply(ctx, settings, fanIndex, kept, len(kept))
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] RerollUserDm FAILED: fan=%d err=%v", fanIndex, err)
		return nil, err
	}

	log.Printf("[GenerationService] RerollUserDm OK: fan=%d dropped=%d duration=%v",
		fanIndex, len(msgs)-i, time.Since(startTime))
	return conv, nil
}

// appendFanReply generates a reply to history and appends it to thread
// fanIndex as currently stored. keep truncates the stored thread to its first
// keep messages first; a negative keep leaves it whole. The thread must still
// belong to the same fan when the reply arrives.
func (s *GenerationService) appendFanReply(ctx context.Context, settings *model.UserSettings, fanIndex int, history []model.DmMessage, keep int) (*model.DmConversation, error) {
	if s.provider == nil {
		return nil, model.ErrConfigMissing
	}

	conv := settings.UserDms[fanIndex]
	conv.Messages = history

	text, err := s.complete(ctx, prompt.UserDmReply(conv, *settings),
		completion.Options{Temperature: replyTemperature, JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("dm reply: %w", err)
	}
	decoded, err := completion.DecodeList[model.DmMessage](text, "messages", "replies")
	if err != nil {
		return nil, fmt.Errorf("dm reply: %w", err)
	}

	reply := make([]model.DmMessage, 0, len(decoded))
	for _, m := range decoded {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		reply = append(reply, model.DmMessage{Sender: model.SenderFan, Text: m.Text})
	}
	if len(reply) == 0 {
		return nil, model.ErrNoValidContent
	}

	latest, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload settings: %w", err)
	}
	if fanIndex >= len(latest.UserDms) || latest.UserDms[fanIndex].FanName != conv.FanName {
		return nil, model.ErrConversationNotFound
	}

	stored := latest.UserDms[fanIndex]
	msgs := stored.Messages
	if keep >= 0 && keep < len(msgs) {
		msgs = msgs[:keep]
	}
	stored.Messages = append(append([]model.DmMessage{}, msgs...), reply...)
	latest.UserDms[fanIndex] = stored
	if err := s.settingsRepo.Put(ctx, latest); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	notify(ctx, s.notifier, "GenerationService", queue.NewViewEvent(queue.EventUserDmsChanged))
	return &stored, nil
}

// decodeConversations keeps named threads with at least one usable message.
func decodeConversations(text string) ([]model.DmConversation, error) {
	decoded, err := completion.DecodeList[model.DmConversation](text, dmListKeys...)
	if err != nil {
		return nil, err
	}

	out := make([]model.DmConversation, 0, len(decoded))
	for _, c := range decoded {
		if strings.TrimSpace(c.FanName) == "" {
			continue
		}
		msgs := make([]model.DmMessage, 0, len(c.Messages))
		for _, m := range c.Messages {
			if !m.Sender.Valid() || strings.TrimSpace(m.Text) == "" {
				continue
			}
			msgs = append(msgs, m)
		}
		if len(msgs) == 0 {
			continue
		}
		c.Messages = msgs
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, model.ErrInvalidDmArray
	}
	return out, nil
}
