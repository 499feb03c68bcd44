package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"threadhub/internal/cache"
	"threadhub/internal/config"
	"threadhub/internal/events"
	"threadhub/internal/models"
	"threadhub/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockNotificationService records dispatched comments and signals on a
// channel so tests can wait for the detached dispatch goroutine.
type mockNotificationService struct {
	NotificationService
	dispatched chan *models.Comment
}

func newMockNotificationService() *mockNotificationService {
	return &mockNotificationService{dispatched: make(chan *models.Comment, 8)}
}

func (m *mockNotificationService) DispatchMentions(ctx context.Context, comment *models.Comment) *MentionDispatchResult {
	m.dispatched <- comment
	return &MentionDispatchResult{Success: true}
}

func (m *mockNotificationService) awaitDispatch(t *testing.T) *models.Comment {
	t.Helper()
	select {
	case c := <-m.dispatched:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("mention dispatch was never triggered")
		return nil
	}
}

type commentFixture struct {
	svc          CommentService
	commentRepo  *mockCommentRepo
	notification *mockNotificationService
	bus          *mockEventBus
	features     *config.FeatureConfig
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	memCache := cache.NewMemoryCache(time.Hour, zap.NewNop())
	t.Cleanup(func() { memCache.Close() })
	return newCommentFixtureWithCache(t, memCache)
}

func newCommentFixtureWithCache(t *testing.T, c cache.Cache) *commentFixture {
	t.Helper()

	features := testFeatures()
	commentRepo := newMockCommentRepo()
	postRepo := newMockPostRepo(&models.Post{ID: 10, CompanyID: 1, UserID: 1, Title: "launch plan"})
	userRepo := newMockUserRepo(
		member(1, 1, "alice"),
		member(2, 1, "bob"),
	)
	notification := newMockNotificationService()
	bus := newMockEventBus()

	svc := NewCommentService(commentRepo, postRepo, userRepo, notification, bus, c, features, zap.NewNop())
	return &commentFixture{
		svc:          svc,
		commentRepo:  commentRepo,
		notification: notification,
		bus:          bus,
		features:     features,
	}
}

func TestCreateComment(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a top-level comment and dispatches mentions", func(t *testing.T) {
		f := newCommentFixture(t)

		comment, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1,
			PostID:    10,
			AuthorID:  1,
			Text:      "  shipping friday, cc @bob  ",
		})
		require.NoError(t, err)

		assert.NotZero(t, comment.ID)
		assert.Equal(t, "alice", comment.AuthorName)
		assert.Equal(t, "shipping friday, cc @bob", comment.Text)
		assert.False(t, comment.IsReply())

		dispatched := f.notification.awaitDispatch(t)
		assert.Equal(t, comment.ID, dispatched.ID)
		assert.Contains(t, f.bus.publishedTypes(), events.EventTypeCommentCreated)
	})

	t.Run("empty text is a validation error", func(t *testing.T) {
		f := newCommentFixture(t)

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "   ",
		})

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "VALIDATION_ERROR", se.Type)
	})

	t.Run("oversized text is a validation error", func(t *testing.T) {
		f := newCommentFixture(t)
		f.features.MaxCommentLength = 10

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "this is longer than ten characters",
		})

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "VALIDATION_ERROR", se.Type)
	})

	t.Run("unknown post is not found", func(t *testing.T) {
		f := newCommentFixture(t)

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 999, AuthorID: 1, Text: "hello",
		})

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "NOT_FOUND", se.Type)
	})

	t.Run("reply to a missing parent is a validation error", func(t *testing.T) {
		f := newCommentFixture(t)
		missing := int64(777)

		// The mock create path defers to the repository's parent check.
		f.commentRepo.createErr = repositories.ErrParentNotFound

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1,
			ParentCommentID: &missing, Text: "orphan reply",
		})

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "VALIDATION_ERROR", se.Type)
	})

	t.Run("rate limit blocks the burst author but not others", func(t *testing.T) {
		f := newCommentFixture(t)
		f.features.MaxCommentsPerHour = 2

		for i := 0; i < 2; i++ {
			_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
				CompanyID: 1, PostID: 10, AuthorID: 1, Text: "burst",
			})
			require.NoError(t, err)
		}

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "over the line",
		})
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "RATE_LIMIT", se.Type)

		_, err = f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 2, Text: "different author is fine",
		})
		assert.NoError(t, err)
	})
}

func TestUpdateComment(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, f *commentFixture) *models.Comment {
		t.Helper()
		comment, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "original",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)
		return comment
	}

	t.Run("author edits stamp the edit marker", func(t *testing.T) {
		f := newCommentFixture(t)
		comment := create(t, f)

		updated, err := f.svc.UpdateComment(ctx, &UpdateCommentRequest{
			CompanyID: 1, CommentID: comment.ID, EditorID: 1, Text: "edited, cc @bob",
		})
		require.NoError(t, err)
		assert.True(t, updated.Edited)
		assert.Equal(t, "edited, cc @bob", updated.Text)

		// Edits re-run mention dispatch for newly added handles.
		dispatched := f.notification.awaitDispatch(t)
		assert.Equal(t, comment.ID, dispatched.ID)
	})

	t.Run("non-author edit is forbidden", func(t *testing.T) {
		f := newCommentFixture(t)
		comment := create(t, f)

		_, err := f.svc.UpdateComment(ctx, &UpdateCommentRequest{
			CompanyID: 1, CommentID: comment.ID, EditorID: 2, Text: "hijack",
		})

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "FORBIDDEN", se.Type)
	})
}

func TestDeleteComment(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, f *commentFixture) *models.Comment {
		t.Helper()
		comment, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "to be deleted",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)
		return comment
	}

	t.Run("author can delete", func(t *testing.T) {
		f := newCommentFixture(t)
		comment := create(t, f)

		err := f.svc.DeleteComment(ctx, &DeleteCommentRequest{
			CompanyID: 1, CommentID: comment.ID, RequesterID: 1, RequesterRole: "member",
		})
		require.NoError(t, err)
		assert.Contains(t, f.bus.publishedTypes(), events.EventTypeCommentDeleted)

		_, err = f.svc.GetComment(ctx, 1, comment.ID)
		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "NOT_FOUND", se.Type)
	})

	t.Run("moderator can delete someone else's comment", func(t *testing.T) {
		f := newCommentFixture(t)
		comment := create(t, f)

		err := f.svc.DeleteComment(ctx, &DeleteCommentRequest{
			CompanyID: 1, CommentID: comment.ID, RequesterID: 2, RequesterRole: "moderator",
		})
		assert.NoError(t, err)
	})

	t.Run("unrelated member cannot delete", func(t *testing.T) {
		f := newCommentFixture(t)
		comment := create(t, f)

		err := f.svc.DeleteComment(ctx, &DeleteCommentRequest{
			CompanyID: 1, CommentID: comment.ID, RequesterID: 2, RequesterRole: "member",
		})

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "FORBIDDEN", se.Type)
	})
}

func TestGetThread(t *testing.T) {
	ctx := context.Background()

	t.Run("thread reflects replies and counts", func(t *testing.T) {
		f := newCommentFixture(t)

		root, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "root",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)

		_, err = f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 2,
			ParentCommentID: &root.ID, Text: "reply",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)

		snapshot, err := f.svc.GetThread(ctx, 1, 10)
		require.NoError(t, err)

		assert.Equal(t, 2, snapshot.TotalCount)
		require.Len(t, snapshot.Tree, 1)
		require.Len(t, snapshot.Tree[0].Replies, 1)
		assert.Equal(t, "reply", snapshot.Tree[0].Replies[0].Text)
	})

	t.Run("unknown post is not found", func(t *testing.T) {
		f := newCommentFixture(t)
		_, err := f.svc.GetThread(ctx, 1, 999)

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "NOT_FOUND", se.Type)
	})

	t.Run("snapshot survives a marshaling cache provider", func(t *testing.T) {
		memCache := cache.NewMemoryCache(time.Hour, zap.NewNop())
		t.Cleanup(func() { memCache.Close() })
		f := newCommentFixtureWithCache(t, &jsonCache{Cache: memCache})

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "round trip",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)

		first, err := f.svc.GetThread(ctx, 1, 10)
		require.NoError(t, err)

		f.commentRepo.listErr = errors.New("store down")
		second, err := f.svc.GetThread(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, first.TotalCount, second.TotalCount)
		require.Len(t, second.Tree, 1)
		assert.Equal(t, "round trip", second.Tree[0].Text)
	})

	t.Run("repeat reads are served from cache", func(t *testing.T) {
		f := newCommentFixture(t)

		_, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "cached",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)

		first, err := f.svc.GetThread(ctx, 1, 10)
		require.NoError(t, err)

		// The store going away no longer matters once the snapshot is
		// cached.
		f.commentRepo.listErr = errors.New("store down")
		second, err := f.svc.GetThread(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, first.TotalCount, second.TotalCount)
	})
}

func TestLikeComment(t *testing.T) {
	ctx := context.Background()

	t.Run("like and unlike adjust the counter", func(t *testing.T) {
		f := newCommentFixture(t)
		comment, err := f.svc.CreateComment(ctx, &CreateCommentRequest{
			CompanyID: 1, PostID: 10, AuthorID: 1, Text: "likeable",
		})
		require.NoError(t, err)
		f.notification.awaitDispatch(t)

		require.NoError(t, f.svc.LikeComment(ctx, 1, comment.ID))
		require.NoError(t, f.svc.LikeComment(ctx, 1, comment.ID))
		require.NoError(t, f.svc.UnlikeComment(ctx, 1, comment.ID))

		got, err := f.svc.GetComment(ctx, 1, comment.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Likes)
	})

	t.Run("liking an unknown comment is not found", func(t *testing.T) {
		f := newCommentFixture(t)
		err := f.svc.LikeComment(ctx, 1, 12345)

		var se *ServiceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "NOT_FOUND", se.Type)
	})
}
