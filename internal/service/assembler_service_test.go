package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nous-core/internal/dto"
	"nous-core/internal/entity"
	"nous-core/internal/pkg/logger"
	"nous-core/pkg/events"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"
)

func newAssembler(t *testing.T, media *fakeMedia, lessons *fakeLessons, dl *fakeDownloader, ev *fakeEvents) (IAssemblerService, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewAssemblerService(dl, media, lessons, ev, AssemblerConfig{MediaDir: dir, DownloadConcurrency: 2}, logger.NewNopLogger())
	svc.(*assemblerService).now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, dir
}

func finishRequest(audio string, videos ...string) *dto.FinishRequest {
	req := &dto.FinishRequest{
		LessonData: entity.LessonDraft{
			Title:     "Cells",
			CourseID:  "3",
			Narration: "Welcome",
			Content:   lexical.NewDocument([]lexical.Node{lexical.NewParagraph("Body")}),
			Audio:     audio,
		},
		AuthToken: "tok",
	}
	for _, v := range videos {
		req.SelectedVideos = append(req.SelectedVideos, gateway.VideoCandidate{VideoID: v, URL: "https://youtu.be/" + v})
	}
	return req
}

func TestFinish_NodeOrder(t *testing.T) {
	media := &fakeMedia{}
	lessons := newFakeLessons()
	ev := &fakeEvents{}
	svc, dir := newAssembler(t, media, lessons, &fakeDownloader{}, ev)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "narration_s1.mp3"), []byte("ID3"), 0o644))

	res, err := svc.Finish(context.Background(), finishRequest("narration_s1.mp3", "aaaaaaaaaaa", "bbbbbbbbbbb"))
	require.NoError(t, err)

	children := res.Lesson.Content.Root.Children
	require.Len(t, children, 4)
	assert.Equal(t, lexical.KindUpload, children[0].Type)
	assert.Equal(t, lexical.MediaAudio, children[0].MediaKind)
	assert.Equal(t, "audio_20240102030405", children[0].ID)
	assert.Equal(t, lexical.KindParagraph, children[1].Type)
	assert.Equal(t, "video_0_20240102030405", children[2].ID)
	assert.Equal(t, "video_1_20240102030405", children[3].ID)
	assert.Equal(t, lexical.MediaVideo, children[3].MediaKind)

	require.Len(t, lessons.created, 1)
	assert.Equal(t, "3", lessons.created[0].CourseID)
	assert.Len(t, lessons.created[0].Content.Root.Children, 4)
	assert.Equal(t, "101", res.PayloadResult.ID)
	assert.True(t, res.Lesson.Published)
	assert.Empty(t, res.SkippedMedia)
	assert.Equal(t, []string{events.LessonPublished}, ev.emitted())

	left, _ := filepath.Glob(filepath.Join(dir, "video_*"))
	assert.Empty(t, left, "downloaded videos are removed after upload")
}

func TestFinish_SkipsFailedMedia(t *testing.T) {
	media := &fakeMedia{failOn: map[string]bool{"video_1_20240102030405": true}}
	lessons := newFakeLessons()
	dl := &fakeDownloader{fail: map[string]bool{"https://youtu.be/aaaaaaaaaaa": true}}
	svc, _ := newAssembler(t, media, lessons, dl, &fakeEvents{})

	// The audio file does not exist, so its upload fails too.
	res, err := svc.Finish(context.Background(), finishRequest("narration_missing.mp3", "aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"))
	require.NoError(t, err)

	children := res.Lesson.Content.Root.Children
	require.Len(t, children, 2)
	assert.Equal(t, lexical.KindParagraph, children[0].Type)
	assert.Equal(t, "video_2_20240102030405", children[1].ID)
	assert.ElementsMatch(t, []string{
		"audio_20240102030405",
		"video_0_20240102030405",
		"video_1_20240102030405",
	}, res.SkippedMedia)
}

func TestFinish_PersistenceFailure(t *testing.T) {
	lessons := newFakeLessons()
	lessons.createErr = errors.New("payload returned 500")
	svc, _ := newAssembler(t, &fakeMedia{}, lessons, &fakeDownloader{}, &fakeEvents{})

	_, err := svc.Finish(context.Background(), finishRequest(""))
	assert.True(t, gateway.IsKind(err, gateway.Persistence))
	assert.Contains(t, err.Error(), "Failed to finish lesson")
}

func TestFinish_RequiresToken(t *testing.T) {
	svc, _ := newAssembler(t, &fakeMedia{}, newFakeLessons(), &fakeDownloader{}, &fakeEvents{})
	req := finishRequest("")
	req.AuthToken = ""

	_, err := svc.Finish(context.Background(), req)
	assert.True(t, gateway.IsKind(err, gateway.Unauthorized))
}

func TestFinish_RepairsClientDraft(t *testing.T) {
	lessons := newFakeLessons()
	svc, _ := newAssembler(t, &fakeMedia{}, lessons, &fakeDownloader{}, &fakeEvents{})
	req := finishRequest("")
	req.LessonData.Content = lexical.Document{Root: lexical.Node{Type: lexical.KindRoot, Children: []lexical.Node{
		{Type: lexical.KindList, Children: []lexical.Node{lexical.NewParagraph("stray")}},
		{Type: lexical.KindParagraph, Children: []lexical.Node{{Type: lexical.KindText, Text: "no version"}}},
	}}}

	res, err := svc.Finish(context.Background(), req)
	require.NoError(t, err)

	children := lessons.created[0].Content.Root.Children
	require.Len(t, children, 2)
	list := children[0]
	assert.Equal(t, lexical.KindList, list.Type)
	require.Len(t, list.Children, 1)
	assert.Equal(t, lexical.KindListItem, list.Children[0].Type)
	assert.Equal(t, lexical.KindText, list.Children[0].Children[0].Type)
	assert.Equal(t, "stray", list.Children[0].Children[0].Text)

	para := children[1]
	assert.Equal(t, 1, para.Version)
	assert.Equal(t, 1, para.Children[0].Version)
	assert.Equal(t, "normal", para.Children[0].Mode)
	assert.Equal(t, children, res.Lesson.Content.Root.Children)
}
