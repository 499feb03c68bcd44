package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"threadhub/internal/cache"
	"threadhub/internal/events"
	"threadhub/internal/models"
)

// ===============================
// REPOSITORY MOCKS
// ===============================

type mockCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments map[int64]*models.Comment

	createErr error
	listErr   error

	// listHook runs after a list read completes, outside the lock, so a
	// test can interleave a write with an in-flight fetch.
	listHook func()
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{
		nextID:   1,
		comments: make(map[int64]*models.Comment),
	}
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	comment.ID = m.nextID
	m.nextID++
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, companyID, commentID int64) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[commentID]
	if !ok || comment.CompanyID != companyID {
		return nil, sql.ErrNoRows
	}
	copied := *comment
	return &copied, nil
}

func (m *mockCommentRepo) ListByPost(ctx context.Context, companyID, postID int64) ([]*models.Comment, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	var flat []*models.Comment
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.comments[id]; ok && c.CompanyID == companyID && c.PostID == postID {
			copied := *c
			flat = append(flat, &copied)
		}
	}
	hook := m.listHook
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return flat, nil
}

func (m *mockCommentRepo) UpdateText(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.comments[comment.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.Text = comment.Text
	stored.Edited = true
	comment.Edited = true
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, companyID, commentID int64) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[commentID]
	if !ok || comment.CompanyID != companyID {
		return nil, sql.ErrNoRows
	}
	delete(m.comments, commentID)
	return comment, nil
}

func (m *mockCommentRepo) IncrementLikes(ctx context.Context, companyID, commentID int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[commentID]
	if !ok || comment.CompanyID != companyID {
		return sql.ErrNoRows
	}
	comment.Likes += delta
	if comment.Likes < 0 {
		comment.Likes = 0
	}
	return nil
}

type mockUserRepo struct {
	users map[string]*models.User

	byUsernamesErr error
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserRepo) GetByID(ctx context.Context, companyID, userID int64) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == userID && u.CompanyID == companyID {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, companyID int64, username string) (*models.User, error) {
	if u, ok := m.users[username]; ok && u.CompanyID == companyID {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) GetByUsernames(ctx context.Context, companyID int64, usernames []string) (map[string]*models.User, error) {
	if m.byUsernamesErr != nil {
		return nil, m.byUsernamesErr
	}
	result := make(map[string]*models.User)
	for _, name := range usernames {
		if u, ok := m.users[name]; ok && u.CompanyID == companyID {
			result[name] = u
		}
	}
	return result, nil
}

type mockPostRepo struct {
	posts map[int64]*models.Post
}

func newMockPostRepo(posts ...*models.Post) *mockPostRepo {
	m := &mockPostRepo{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepo) GetByID(ctx context.Context, companyID, postID int64) (*models.Post, error) {
	if p, ok := m.posts[postID]; ok && p.CompanyID == companyID {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPostRepo) Exists(ctx context.Context, companyID, postID int64) (bool, error) {
	p, ok := m.posts[postID]
	return ok && p.CompanyID == companyID, nil
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications []*models.Notification

	createErr     error
	createFailsN  int
	existsErr     error
	createAttempt int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{nextID: 1}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createAttempt++
	if m.createErr != nil {
		return m.createErr
	}
	if m.createFailsN > 0 {
		m.createFailsN--
		return fmt.Errorf("transient store failure")
	}
	n.ID = m.nextID
	m.nextID++
	stored := *n
	m.notifications = append(m.notifications, &stored)
	return nil
}

func (m *mockNotificationRepo) ExistsForMention(ctx context.Context, companyID, userID, commentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, n := range m.notifications {
		if n.CompanyID == companyID && n.UserID == userID &&
			n.CommentID != nil && *n.CommentID == commentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, companyID, userID int64, params models.PaginationParams) ([]*models.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.Notification
	for _, n := range m.notifications {
		if n.CompanyID == companyID && n.UserID == userID {
			matched = append(matched, n)
		}
	}
	return matched, int64(len(matched)), nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, companyID, userID, notificationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == notificationID && n.CompanyID == companyID && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, companyID, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, n := range m.notifications {
		if n.CompanyID == companyID && n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, companyID, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.CompanyID == companyID && n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) stored() []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// ===============================
// CACHE DOUBLES
// ===============================

// jsonCache behaves like the redis provider: values go in marshaled and
// come back as generic JSON values, never as the original Go type.
type jsonCache struct {
	cache.Cache
}

func (c *jsonCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var val string
	switch v := value.(type) {
	case string:
		val = v
	case []byte:
		val = string(v)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		val = string(data)
	}
	return c.Cache.Set(ctx, key, val, ttl)
}

func (c *jsonCache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, found := c.Cache.Get(ctx, key)
	if !found {
		return nil, false
	}
	stored, ok := value.(string)
	if !ok {
		return value, true
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(stored), &decoded); err == nil {
		return decoded, true
	}
	return stored, true
}

// ===============================
// EVENT BUS MOCK
// ===============================

// mockEventBus dispatches synchronously so tests observe handler effects
// without sleeping.
type mockEventBus struct {
	mu        sync.Mutex
	handlers  map[string][]events.EventHandler
	published []events.Event
}

func newMockEventBus() *mockEventBus {
	return &mockEventBus{handlers: make(map[string][]events.EventHandler)}
}

func (b *mockEventBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	b.published = append(b.published, event)
	handlers := append([]events.EventHandler(nil), b.handlers[event.GetEventType()]...)
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *mockEventBus) PublishAsync(ctx context.Context, event events.Event) error {
	return b.Publish(ctx, event)
}

func (b *mockEventBus) Subscribe(eventType string, handler events.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

func (b *mockEventBus) Unsubscribe(eventType string, handler events.EventHandler) error {
	return nil
}

func (b *mockEventBus) Start(ctx context.Context) error { return nil }
func (b *mockEventBus) Stop(ctx context.Context) error  { return nil }

func (b *mockEventBus) publishedTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.published))
	for _, e := range b.published {
		types = append(types, e.GetEventType())
	}
	return types
}
