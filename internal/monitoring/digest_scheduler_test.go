package monitoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okenna/dreamloom-be/internal/apperrors"
	"github.com/okenna/dreamloom-be/internal/models"
)

type fakeDreamService struct {
	pending   []string
	pendErr   error
	weaveErrs map[string]error
	woven     []string
}

func (f *fakeDreamService) UsersNeedingDigest(context.Context) ([]string, error) {
	return f.pending, f.pendErr
}

func (f *fakeDreamService) CollectiveNarrative(_ context.Context, email string) (models.Digest, error) {
	if err := f.weaveErrs[email]; err != nil {
		return models.Digest{}, err
	}
	f.woven = append(f.woven, email)
	return models.Digest{UserEmail: email, Narrative: "n", DreamCount: 1}, nil
}

func (f *fakeDreamService) SaveDream(context.Context, string, string) (models.Dream, error) {
	panic("not used")
}

func (f *fakeDreamService) ListDreams(context.Context, string) ([]models.Dream, error) {
	panic("not used")
}

func (f *fakeDreamService) GenerateImage(context.Context, string) (string, error) {
	panic("not used")
}

func (f *fakeDreamService) GetLatestDigest(context.Context, string) (models.Digest, error) {
	panic("not used")
}

type fakeEventService struct {
	events []string
}

func (f *fakeEventService) CreateEvent(eventType, level, message string, userEmail *string) error {
	f.events = append(f.events, eventType)
	return nil
}

func (f *fakeEventService) GetRecentEvents(int) ([]models.Event, error) {
	return nil, nil
}

func TestNewDigestSchedulerRejectsBadCron(t *testing.T) {
	_, err := NewDigestScheduler(&fakeDreamService{}, &fakeEventService{}, "not a cron expr")
	assert.Error(t, err)
}

func TestRefreshDigestsWeavesPendingUsers(t *testing.T) {
	dreams := &fakeDreamService{pending: []string{"a@x.com", "b@x.com"}}
	events := &fakeEventService{}

	s, err := NewDigestScheduler(dreams, events, "@hourly")
	require.NoError(t, err)

	s.refreshDigests()

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, dreams.woven)
	assert.Empty(t, events.events)
}

func TestRefreshDigestsRecordsFailures(t *testing.T) {
	dreams := &fakeDreamService{
		pending: []string{"a@x.com", "empty@x.com", "broken@x.com"},
		weaveErrs: map[string]error{
			// A user whose dreams vanished between the query and the weave is
			// skipped silently; real failures land in the event log.
			"empty@x.com":  apperrors.ErrNoDreams,
			"broken@x.com": errors.New("llm unavailable"),
		},
	}
	events := &fakeEventService{}

	s, err := NewDigestScheduler(dreams, events, "@hourly")
	require.NoError(t, err)

	s.refreshDigests()

	assert.Equal(t, []string{"a@x.com"}, dreams.woven)
	assert.Equal(t, []string{"digest.refresh.fail"}, events.events)
}

func TestRefreshDigestsNoPendingUsers(t *testing.T) {
	dreams := &fakeDreamService{}
	events := &fakeEventService{}

	s, err := NewDigestScheduler(dreams, events, "@hourly")
	require.NoError(t, err)

	s.refreshDigests()

	assert.Empty(t, dreams.woven)
	assert.Empty(t, events.events)
}
