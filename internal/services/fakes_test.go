package services_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/vladimiradmaev/therapy-overrides/internal/errors"
	"github.com/vladimiradmaev/therapy-overrides/internal/override"
	"github.com/vladimiradmaev/therapy-overrides/internal/rawvalue"
)

var errStoreDown = errors.New("store down")

type fakeHistoryRepo struct {
	mu      sync.Mutex
	saved   map[int64]rawvalue.Map
	saves   int
	failing bool
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{saved: make(map[int64]rawvalue.Map)}
}

func (r *fakeHistoryRepo) SaveHistory(_ context.Context, telegramID int64, raw rawvalue.Map) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.failing {
		return errStoreDown
	}
	r.saved[telegramID] = raw
	return nil
}

func (r *fakeHistoryRepo) LoadHistory(_ context.Context, telegramID int64) (rawvalue.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.saved[telegramID]
	if !ok {
		return nil, apperrors.ErrHistoryNotFound
	}
	return raw, nil
}

func (r *fakeHistoryRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type fakePresetRepo struct {
	presets map[uuid.UUID]override.Preset
}

func newFakePresetRepo() *fakePresetRepo {
	return &fakePresetRepo{presets: make(map[uuid.UUID]override.Preset)}
}

func (r *fakePresetRepo) SavePreset(_ context.Context, _ int64, p override.Preset) error {
	r.presets[p.ID] = p
	return nil
}

func (r *fakePresetRepo) ListPresets(context.Context, int64) ([]override.Preset, error) {
	out := make([]override.Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePresetRepo) GetPreset(_ context.Context, _ int64, id uuid.UUID) (override.Preset, error) {
	p, ok := r.presets[id]
	if !ok {
		return override.Preset{}, apperrors.ErrPresetNotFound
	}
	return p, nil
}

func (r *fakePresetRepo) DeletePreset(_ context.Context, _ int64, id uuid.UUID) error {
	if _, ok := r.presets[id]; !ok {
		return apperrors.ErrPresetNotFound
	}
	delete(r.presets, id)
	return nil
}

// slowHistoryRepo holds LoadHistory for one user until released.
type slowHistoryRepo struct {
	*fakeHistoryRepo
	slowUser int64
	started  chan struct{}
	release  chan struct{}
}

func (r *slowHistoryRepo) LoadHistory(ctx context.Context, telegramID int64) (rawvalue.Map, error) {
	if telegramID == r.slowUser {
		close(r.started)
		<-r.release
	}
	return r.fakeHistoryRepo.LoadHistory(ctx, telegramID)
}
