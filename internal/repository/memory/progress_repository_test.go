package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nous-core/internal/entity"
	"nous-core/internal/repository/contract"
)

func TestProgressRepository_Lifecycle(t *testing.T) {
	r := NewProgressRepository()
	require.NoError(t, r.Create("s1", entity.NewProgressRecord(entity.StageUpload, "up"), nil))
	assert.Error(t, r.Create("s1", entity.NewProgressRecord(entity.StageUpload, "again"), nil))

	assert.True(t, r.Update("s1", entity.NewProgressRecord(entity.StageNarrating, "n")))
	rec, ok := r.Get("s1")
	require.True(t, ok)
	assert.Equal(t, entity.StageNarrating, rec.Stage)
	assert.Equal(t, 40, rec.Progress)

	_, status := r.Take("s1")
	assert.Equal(t, contract.TakePending, status)

	result := &entity.GenerationResult{Draft: entity.LessonDraft{Title: "Cells"}}
	require.True(t, r.Complete("s1", entity.NewProgressRecord(entity.StageSelection, "ready"), result))

	session, status := r.Take("s1")
	assert.Equal(t, contract.TakeReady, status)
	assert.Equal(t, "Cells", session.Result.Draft.Title)

	_, status = r.Take("s1")
	assert.Equal(t, contract.TakeNotFound, status)
}

func TestProgressRepository_ProgressNeverRegresses(t *testing.T) {
	r := NewProgressRepository()
	require.NoError(t, r.Create("s1", entity.NewProgressRecord(entity.StageUpload, ""), nil))

	r.Update("s1", entity.NewProgressRecord(entity.StageSearchingVideo, ""))
	r.Update("s1", entity.NewProgressRecord(entity.StageNarrating, "late"))

	rec, _ := r.Get("s1")
	assert.Equal(t, 70, rec.Progress)
	assert.Equal(t, "late", rec.Message)
}

func TestProgressRepository_ErrorIsConsumed(t *testing.T) {
	r := NewProgressRepository()
	require.NoError(t, r.Create("s1", entity.NewProgressRecord(entity.StageUpload, ""), nil))
	rec := entity.NewProgressRecord(entity.StageError, "boom")
	rec.Error = "boom"
	r.Update("s1", rec)

	session, status := r.Take("s1")
	assert.Equal(t, contract.TakeFailed, status)
	assert.Equal(t, "boom", session.Latest.Error)
	assert.Equal(t, 0, r.Count())
}

func TestProgressRepository_UpdateAfterDeleteIsNoop(t *testing.T) {
	r := NewProgressRepository()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Create("s1", entity.NewProgressRecord(entity.StageUpload, ""), cancel))

	got, ok := r.Delete("s1")
	require.True(t, ok)
	got()
	assert.Error(t, ctx.Err())

	assert.False(t, r.Update("s1", entity.NewProgressRecord(entity.StageSelection, "late")))
	assert.False(t, r.Complete("s1", entity.NewProgressRecord(entity.StageSelection, "late"), &entity.GenerationResult{}))
	_, ok = r.Get("s1")
	assert.False(t, ok)

	_, ok = r.Delete("s1")
	assert.False(t, ok)
}

func TestProgressRepository_Sweep(t *testing.T) {
	r := NewProgressRepository()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Create("old", entity.NewProgressRecord(entity.StageUpload, ""), cancel))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, r.Create("new", entity.NewProgressRecord(entity.StageUpload, ""), nil))

	evicted := r.Sweep(10 * time.Millisecond)

	assert.Equal(t, []string{"old"}, evicted)
	assert.Error(t, ctx.Err())
	assert.Equal(t, 1, r.Count())
}
