package services

import (
	"context"
	"sync"

	"threadhub/internal/events"
	"threadhub/internal/repositories"
	"threadhub/internal/thread"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// snapshotBuffer bounds how many undelivered snapshots a slow subscriber
// may queue before newer ones replace them.
const snapshotBuffer = 16

// ThreadSubscription is one live view of a post's comment thread. The
// initial snapshot and every subsequent rebuild arrive on Snapshots;
// fetch failures arrive on Errors and are not retried.
type ThreadSubscription struct {
	ID        string
	CompanyID int64
	PostID    int64
	Snapshots chan *ThreadSnapshot
	Errors    chan error

	mu        sync.Mutex
	closed    bool
	delivered bool
}

// deliver hands a snapshot to the subscriber. After close nothing is
// delivered, so a push that raced an unsubscribe is silently dropped.
func (sub *ThreadSubscription) deliver(snapshot *ThreadSnapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.delivered = true
	select {
	case sub.Snapshots <- snapshot:
	default:
		// Buffer full: drop the oldest queued snapshot so the subscriber
		// always converges on the latest state.
		select {
		case <-sub.Snapshots:
		default:
		}
		select {
		case sub.Snapshots <- snapshot:
		default:
		}
	}
}

// deliverInitial queues the snapshot built at subscribe time. If an
// event-driven rebuild already delivered by then, that snapshot is at
// least as fresh and the initial one is discarded.
func (sub *ThreadSubscription) deliverInitial(snapshot *ThreadSnapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed || sub.delivered {
		return
	}
	sub.delivered = true
	sub.Snapshots <- snapshot
}

func (sub *ThreadSubscription) fail(err error) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.Errors <- err:
	default:
	}
}

func (sub *ThreadSubscription) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.Snapshots)
	close(sub.Errors)
}

type threadService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
	eventBus    events.EventBus
	logger      *zap.Logger

	mu   sync.RWMutex
	subs map[string]*ThreadSubscription
}

// NewThreadService creates the thread sync service and registers its
// event handler for every comment lifecycle event.
func NewThreadService(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	eventBus events.EventBus,
	logger *zap.Logger,
) (ThreadService, error) {
	s := &threadService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		eventBus:    eventBus,
		logger:      logger,
		subs:        make(map[string]*ThreadSubscription),
	}

	handler := events.EventHandlerFunc{
		ID:   "thread-sync",
		Func: s.handleCommentEvent,
	}
	for _, eventType := range []string{
		events.EventTypeCommentCreated,
		events.EventTypeCommentUpdated,
		events.EventTypeCommentDeleted,
	} {
		if err := eventBus.Subscribe(eventType, handler); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Subscribe registers a live view of the post's thread and sends the
// current snapshot as the first delivery. Registration happens before
// the snapshot fetch so a comment committed while the fetch is in
// flight still reaches the subscriber through its own event.
func (s *threadService) Subscribe(ctx context.Context, companyID, postID int64) (*ThreadSubscription, error) {
	exists, err := s.postRepo.Exists(ctx, companyID, postID)
	if err != nil {
		return nil, NewInternalError("failed to check post")
	}
	if !exists {
		return nil, NewNotFoundError("post not found")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, NewInternalError("failed to create subscription id")
	}

	sub := &ThreadSubscription{
		ID:        id.String(),
		CompanyID: companyID,
		PostID:    postID,
		Snapshots: make(chan *ThreadSnapshot, snapshotBuffer),
		Errors:    make(chan error, 1),
	}

	s.mu.Lock()
	s.subs[sub.ID] = sub
	s.mu.Unlock()

	snapshot, err := s.buildSnapshot(ctx, companyID, postID)
	if err != nil {
		s.mu.Lock()
		delete(s.subs, sub.ID)
		s.mu.Unlock()
		sub.close()
		return nil, err
	}
	sub.deliverInitial(snapshot)

	s.logger.Info("thread subscription opened",
		zap.String("subscription_id", sub.ID),
		zap.Int64("post_id", postID),
	)
	return sub, nil
}

// Unsubscribe tears down a subscription. Safe to call repeatedly or with
// an ID that was never registered.
func (s *threadService) Unsubscribe(subscriptionID string) {
	s.mu.Lock()
	sub, ok := s.subs[subscriptionID]
	if ok {
		delete(s.subs, subscriptionID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	sub.close()
	s.logger.Info("thread subscription closed",
		zap.String("subscription_id", subscriptionID),
		zap.Int64("post_id", sub.PostID),
	)
}

// Close tears down every open subscription.
func (s *threadService) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*ThreadSubscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// handleCommentEvent re-fetches the affected post's flat list, rebuilds
// the tree, and pushes the fresh snapshot to every subscriber of that
// post. One fetch serves all of them.
func (s *threadService) handleCommentEvent(ctx context.Context, event events.Event) error {
	commentEvent, ok := event.(*events.CommentEvent)
	if !ok {
		return nil
	}

	subscribers := s.subscribersFor(commentEvent.CompanyID, commentEvent.PostID)
	if len(subscribers) == 0 {
		return nil
	}

	snapshot, err := s.buildSnapshot(ctx, commentEvent.CompanyID, commentEvent.PostID)
	if err != nil {
		s.logger.Error("thread snapshot rebuild failed",
			zap.Int64("post_id", commentEvent.PostID),
			zap.Error(err),
		)
		for _, sub := range subscribers {
			sub.fail(err)
		}
		return err
	}

	for _, sub := range subscribers {
		sub.deliver(snapshot)
	}
	return nil
}

func (s *threadService) subscribersFor(companyID, postID int64) []*ThreadSubscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*ThreadSubscription
	for _, sub := range s.subs {
		if sub.CompanyID == companyID && sub.PostID == postID {
			matched = append(matched, sub)
		}
	}
	return matched
}

func (s *threadService) buildSnapshot(ctx context.Context, companyID, postID int64) (*ThreadSnapshot, error) {
	flat, err := s.commentRepo.ListByPost(ctx, companyID, postID)
	if err != nil {
		return nil, NewTransientStoreError("failed to load comments", err)
	}

	tree := thread.BuildCommentTree(flat)
	return &ThreadSnapshot{
		PostID:     postID,
		Tree:       tree,
		TotalCount: thread.CountNodes(tree),
	}, nil
}
