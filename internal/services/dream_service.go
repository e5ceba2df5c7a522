package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/okenna/dreamloom-be/internal/apperrors"
	"github.com/okenna/dreamloom-be/internal/models"
)

const restylePrompt = `You are supposed to format the following text into a structured, vivid dream narrative in first person:
%s
Make it immersive, flow like a dream, and avoid any analysis or explanations. Just narrate as if you're recounting the dream.`

const weaverPrompt = `You are an AI dream weaver. These are a collection of dreams experienced by one person:
%s
Now, evolve these dreams into one surreal, cohesive, vivid dream experience.
- The format should be in **first person**.
- Make it immersive and continuous, as if it was one long night of dreaming.
- Do not explain. Just narrate the dream directly.
- Make sure it is about 100 words long.`

const visualPrompt = `You are a surreal storyteller. Here's a set of dreams:
%s
Turn it into a visual, animative description in 1-2 sentences for an artist to paint.
Be abstract and expressive.`

// TextCompleter is the LLM collaborator: an opaque prompt-to-text transform.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator renders a text prompt into a hosted image URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier pushes a realtime message to a user's feed.
type Notifier interface {
	NotifyUser(email, action string, payload interface{})
}

// DreamServiceProvider defines the interface for dream journal operations.
type DreamServiceProvider interface {
	SaveDream(ctx context.Context, email, text string) (models.Dream, error)
	ListDreams(ctx context.Context, email string) ([]models.Dream, error)
	CollectiveNarrative(ctx context.Context, email string) (models.Digest, error)
	GenerateImage(ctx context.Context, email string) (string, error)
	GetLatestDigest(ctx context.Context, email string) (models.Digest, error)
	UsersNeedingDigest(ctx context.Context) ([]string, error)
}

// DreamService persists dreams and drives the LLM and image collaborators.
type DreamService struct {
	db       *sql.DB
	llm      TextCompleter
	images   ImageGenerator
	events   EventServiceProvider
	notifier Notifier
}

// NewDreamService creates a new DreamService.
func NewDreamService(db *sql.DB, llm TextCompleter, images ImageGenerator, events EventServiceProvider, notifier Notifier) *DreamService {
	return &DreamService{db: db, llm: llm, images: images, events: events, notifier: notifier}
}

// SaveDream restyles the raw text into a first-person narrative and stores
// both forms.
func (s *DreamService) SaveDream(ctx context.Context, email, text string) (models.Dream, error) {
	structured, err := s.llm.Complete(ctx, fmt.Sprintf(restylePrompt, text))
	if err != nil {
		return models.Dream{}, fmt.Errorf("failed to restyle dream: %w", err)
	}

	dream := models.Dream{
		ID:             uuid.New().String(),
		UserEmail:      email,
		Text:           text,
		StructuredText: structured,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO dreams (id, user_email, text, structured_text) VALUES (?, ?, ?, ?)",
		dream.ID, dream.UserEmail, dream.Text, dream.StructuredText)
	if err != nil {
		return models.Dream{}, err
	}

	s.logEvent("dream.create", "info", fmt.Sprintf("Dream %s recorded.", dream.ID), email)
	s.notify(email, "dream_saved", map[string]string{"dreamId": dream.ID})
	return dream, nil
}

// ListDreams returns the user's dreams, newest first.
func (s *DreamService) ListDreams(ctx context.Context, email string) ([]models.Dream, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, structured_text, image_url, created_at FROM dreams WHERE user_email = ? ORDER BY created_at DESC, id DESC",
		email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dreams []models.Dream
	for rows.Next() {
		dream := models.Dream{UserEmail: email}
		if err := rows.Scan(&dream.ID, &dream.StructuredText, &dream.ImageURL, &dream.CreatedAt); err != nil {
			return nil, err
		}
		dreams = append(dreams, dream)
	}
	return dreams, rows.Err()
}

// CollectiveNarrative weaves every dream the user has recorded into one
// ~100-word first-person narrative and stores it as a digest.
func (s *DreamService) CollectiveNarrative(ctx context.Context, email string) (models.Digest, error) {
	texts, err := s.rawDreamTexts(ctx, email)
	if err != nil {
		return models.Digest{}, err
	}
	if len(texts) == 0 {
		return models.Digest{}, apperrors.ErrNoDreams
	}

	narrative, err := s.llm.Complete(ctx, fmt.Sprintf(weaverPrompt, strings.Join(texts, "\n\n")))
	if err != nil {
		return models.Digest{}, fmt.Errorf("failed to weave narrative: %w", err)
	}

	digest := models.Digest{
		ID:         uuid.New().String(),
		UserEmail:  email,
		Narrative:  narrative,
		DreamCount: len(texts),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO digests (id, user_email, narrative, dream_count) VALUES (?, ?, ?, ?)",
		digest.ID, digest.UserEmail, digest.Narrative, digest.DreamCount)
	if err != nil {
		return models.Digest{}, err
	}

	s.logEvent("narrative.generate", "info",
		fmt.Sprintf("Collective narrative woven from %d dreams.", digest.DreamCount), email)
	s.notify(email, "narrative_ready", map[string]string{"digestId": digest.ID})
	return digest, nil
}

// GenerateImage summarizes the user's dreams into a short visual prompt,
// renders it, and attaches the resulting URL to the latest dream.
func (s *DreamService) GenerateImage(ctx context.Context, email string) (string, error) {
	texts, err := s.rawDreamTexts(ctx, email)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", apperrors.ErrNoDreams
	}

	description, err := s.llm.Complete(ctx, fmt.Sprintf(visualPrompt, strings.Join(texts, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("failed to summarize dreams: %w", err)
	}

	imageURL, err := s.images.Generate(ctx, strings.TrimSpace(description))
	if err != nil {
		return "", fmt.Errorf("failed to generate image: %w", err)
	}

	var latestID string
	row := s.db.QueryRowContext(ctx,
		"SELECT id FROM dreams WHERE user_email = ? ORDER BY created_at DESC, id DESC LIMIT 1", email)
	if err := row.Scan(&latestID); err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, "UPDATE dreams SET image_url = ? WHERE id = ?", imageURL, latestID)
	if err != nil {
		return "", err
	}

	s.logEvent("image.generate", "info", fmt.Sprintf("Dream image rendered for dream %s.", latestID), email)
	s.notify(email, "image_ready", map[string]string{"dreamId": latestID, "imageUrl": imageURL})
	return imageURL, nil
}

// GetLatestDigest returns the most recently stored digest for the user.
func (s *DreamService) GetLatestDigest(ctx context.Context, email string) (models.Digest, error) {
	var digest models.Digest
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_email, narrative, dream_count, created_at FROM digests WHERE user_email = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		email)
	err := row.Scan(&digest.ID, &digest.UserEmail, &digest.Narrative, &digest.DreamCount, &digest.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Digest{}, apperrors.ErrNoDreams
		}
		return models.Digest{}, err
	}
	return digest, nil
}

// UsersNeedingDigest lists users whose newest dream postdates their newest
// digest (or who have dreams but no digest yet). Used by the background
// digest scheduler.
func (s *DreamService) UsersNeedingDigest(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.user_email FROM dreams d
		GROUP BY d.user_email
		HAVING MAX(d.created_at) > COALESCE(
			(SELECT MAX(g.created_at) FROM digests g WHERE g.user_email = d.user_email),
			'0001-01-01')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// rawDreamTexts returns the user's original submissions, oldest first, which
// is what the aggregation prompts are built from.
func (s *DreamService) rawDreamTexts(ctx context.Context, email string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT text FROM dreams WHERE user_email = ? ORDER BY created_at ASC, id ASC", email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

func (s *DreamService) logEvent(eventType, level, message, email string) {
	if err := s.events.CreateEvent(eventType, level, message, &email); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

func (s *DreamService) notify(email, action string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.NotifyUser(email, action, payload)
	}
}
