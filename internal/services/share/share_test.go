package share

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

type fakeDirectory struct {
	published  []*models.Bot
	publishErr error
}

func (f *fakeDirectory) Publish(ctx context.Context, bot *models.Bot) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, bot)
	return nil
}

func (f *fakeDirectory) FetchUpdatedSince(ctx context.Context, since time.Time) ([]*models.Bot, error) {
	return nil, nil
}

type fakeBots struct {
	added []*models.Bot
}

func (f *fakeBots) AddBot(ctx context.Context, bot *models.Bot) error {
	f.added = append(f.added, bot)
	return nil
}

func (f *fakeBots) Search(ctx context.Context, query string) ([]*models.Bot, error) { return nil, nil }
func (f *fakeBots) List(ctx context.Context, limit, offset int) ([]*models.Bot, error) {
	return nil, nil
}
func (f *fakeBots) GetByUUID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	return nil, nil
}
func (f *fakeBots) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeBots) DeleteAll(ctx context.Context) error            { return nil }

type fakePrefs struct {
	prefs models.Preferences
}

func (f *fakePrefs) Preferences(ctx context.Context) (models.Preferences, error) {
	return f.prefs, nil
}

func testPersona() *models.Persona {
	return &models.Persona{
		UUID:          uuid.New(),
		Name:          "Chef",
		Alias:         "chef",
		SystemMessage: "You are a chef.",
	}
}

func TestShare(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	bots := &fakeBots{}
	prefs := &fakePrefs{prefs: models.Preferences{EnableUserGeneratedContent: true}}
	svc := NewService(dir, bots, prefs, nil)

	persona := testPersona()
	bot, err := svc.Share(context.Background(), persona, "user-1", "Cooks things", []string{"food"})
	if err != nil {
		t.Fatalf("Share failed: %v", err)
	}

	if bot.ParentUUID != persona.UUID {
		t.Errorf("bot parent = %v, want source persona %v", bot.ParentUUID, persona.UUID)
	}
	if bot.UUID == persona.UUID {
		t.Error("shared bot must get its own identity")
	}
	if len(dir.published) != 1 || len(bots.added) != 1 {
		t.Errorf("published %d / cached %d, want 1 / 1", len(dir.published), len(bots.added))
	}
	if dir.published[0].UUID != bots.added[0].UUID {
		t.Error("remote and local copies should be the same record")
	}
}

func TestShareDisabledByPreference(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{}
	bots := &fakeBots{}
	prefs := &fakePrefs{prefs: models.DefaultPreferences()}
	svc := NewService(dir, bots, prefs, nil)

	_, err := svc.Share(context.Background(), testPersona(), "user-1", "", nil)
	if !errors.Is(err, ErrSharingDisabled) {
		t.Fatalf("Share with UGC off returned %v, want ErrSharingDisabled", err)
	}
	if len(dir.published) != 0 || len(bots.added) != 0 {
		t.Error("nothing should be written when sharing is disabled")
	}
}

func TestSharePublishFailureSkipsLocalWrite(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{publishErr: errors.New("network down")}
	bots := &fakeBots{}
	prefs := &fakePrefs{prefs: models.Preferences{EnableUserGeneratedContent: true}}
	svc := NewService(dir, bots, prefs, nil)

	if _, err := svc.Share(context.Background(), testPersona(), "user-1", "", nil); err == nil {
		t.Fatal("Share should propagate publish failure")
	}
	if len(bots.added) != 0 {
		t.Error("local cache should not be written when the publish fails")
	}
}
