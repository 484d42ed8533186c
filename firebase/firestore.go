package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskboard/models"
)

const (
	usersCollection    = "users"
	emailsCollection   = "emails"
	tasksCollection    = "tasks"
	countersCollection = "counters"
)

type taskDoc struct {
	ID        int64  `firestore:"id"`
	OwnerID   *int64 `firestore:"user_id"`
	Title     string `firestore:"title"`
	Detail    string `firestore:"detail"`
	Priority  string `firestore:"priority"`
	Status    string `firestore:"status"`
	CreatedAt int64  `firestore:"created_at"`
	StartDate string `firestore:"start_date"`
	DueDate   string `firestore:"due_date"`
}

type userDoc struct {
	ID           int64  `firestore:"id"`
	Email        string `firestore:"email"`
	PasswordHash string `firestore:"password_hash"`
	CreatedAt    int64  `firestore:"created_at"`
}

// emailDoc reserves an address. Its document ID is the escaped email.
type emailDoc struct {
	UserID int64 `firestore:"user_id"`
}

type counterDoc struct {
	Next int64 `firestore:"next"`
}

// Store keeps users and tasks in Firestore. Numeric IDs come from counter
// documents bumped inside the same transaction as the insert.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) counterRef(collection string) *firestore.DocumentRef {
	return s.client.Collection(countersCollection).Doc(collection)
}

// nextID reads the counter for collection and returns the ID to use. The
// caller must store it back with tx.Set once all reads are done.
func (s *Store) nextID(tx *firestore.Transaction, collection string) (int64, error) {
	snap, err := tx.Get(s.counterRef(collection))
	if isNotFound(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s counter: %w", collection, err)
	}
	var c counterDoc
	if err := snap.DataTo(&c); err != nil {
		return 0, fmt.Errorf("decode %s counter: %w", collection, err)
	}
	return c.Next + 1, nil
}

// emailKey makes an address usable as a document ID.
func emailKey(email string) string {
	return url.PathEscape(email)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	emailRef := s.client.Collection(emailsCollection).Doc(emailKey(u.Email))

	var id int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(emailRef); err == nil {
			return models.ErrDuplicateEmail
		} else if !isNotFound(err) {
			return fmt.Errorf("check email: %w", err)
		}

		next, err := s.nextID(tx, usersCollection)
		if err != nil {
			return err
		}
		if err := tx.Set(s.counterRef(usersCollection), counterDoc{Next: next}); err != nil {
			return err
		}
		if err := tx.Create(emailRef, emailDoc{UserID: next}); err != nil {
			return err
		}
		id = next
		return tx.Create(s.client.Collection(usersCollection).Doc(docID(next)), userDoc{
			ID:           next,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt.UTC().UnixMilli(),
		})
	})
	if errors.Is(err, models.ErrDuplicateEmail) || status.Code(err) == codes.AlreadyExists {
		return models.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	snap, err := s.client.Collection(emailsCollection).Doc(emailKey(email)).Get(ctx)
	if isNotFound(err) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get email %s: %w", email, err)
	}
	var e emailDoc
	if err := snap.DataTo(&e); err != nil {
		return models.User{}, fmt.Errorf("decode email doc: %w", err)
	}

	snap, err = s.client.Collection(usersCollection).Doc(docID(e.UserID)).Get(ctx)
	if isNotFound(err) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", e.UserID, err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return models.User{}, fmt.Errorf("decode user doc: %w", err)
	}
	return models.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    time.UnixMilli(d.CreatedAt).UTC(),
	}, nil
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	var id int64
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		next, err := s.nextID(tx, tasksCollection)
		if err != nil {
			return err
		}
		if err := tx.Set(s.counterRef(tasksCollection), counterDoc{Next: next}); err != nil {
			return err
		}
		doc := toTaskDoc(*t)
		doc.ID = next
		id = next
		return tx.Create(s.client.Collection(tasksCollection).Doc(docID(next)), doc)
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	t.ID = id
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	snap, err := s.client.Collection(tasksCollection).Doc(docID(id)).Get(ctx)
	if isNotFound(err) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return decodeTask(snap)
}

// ListTasks needs a composite index on (user_id, status, priority, created_at desc, id desc)
// for the filtered variants outside the emulator.
func (s *Store) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	q := s.client.Collection(tasksCollection).Query
	if f.OwnerID != nil {
		q = q.Where("user_id", "==", *f.OwnerID)
	}
	if f.Status != nil {
		q = q.Where("status", "==", string(*f.Status))
	}
	if f.Priority != nil {
		q = q.Where("priority", "==", string(*f.Priority))
	}
	q = q.OrderBy("created_at", firestore.Desc).OrderBy("id", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	tasks := []models.Task{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		t, err := decodeTask(snap)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, id int64, mutate func(*models.Task) error) error {
	ref := s.client.Collection(tasksCollection).Doc(docID(id))
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return models.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get task %d: %w", id, err)
		}
		t, err := decodeTask(snap)
		if err != nil {
			return err
		}
		if err := mutate(&t); err != nil {
			return err
		}
		doc := toTaskDoc(t)
		doc.ID = id
		return tx.Set(ref, doc)
	})
}

func (s *Store) DeleteTask(ctx context.Context, id int64, check func(models.Task) error) error {
	ref := s.client.Collection(tasksCollection).Doc(docID(id))
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return models.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get task %d: %w", id, err)
		}
		if check != nil {
			t, err := decodeTask(snap)
			if err != nil {
				return err
			}
			if err := check(t); err != nil {
				return err
			}
		}
		return tx.Delete(ref)
	})
}

func toTaskDoc(t models.Task) taskDoc {
	return taskDoc{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		Title:     t.Title,
		Detail:    t.Detail,
		Priority:  string(t.Priority),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.UTC().UnixMilli(),
		StartDate: models.FormatDate(t.StartDate),
		DueDate:   models.FormatDate(t.DueDate),
	}
}

func decodeTask(snap *firestore.DocumentSnapshot) (models.Task, error) {
	var d taskDoc
	if err := snap.DataTo(&d); err != nil {
		return models.Task{}, fmt.Errorf("decode task %s: %w", snap.Ref.ID, err)
	}
	t := models.Task{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Title:     d.Title,
		Detail:    d.Detail,
		Priority:  models.Priority(d.Priority),
		Status:    models.Status(d.Status),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
	var err error
	if t.StartDate, err = models.ParseDate("start_date", d.StartDate); err != nil {
		return models.Task{}, fmt.Errorf("task %d: %w", d.ID, err)
	}
	if t.DueDate, err = models.ParseDate("due_date", d.DueDate); err != nil {
		return models.Task{}, fmt.Errorf("task %d: %w", d.ID, err)
	}
	return t, nil
}

// Reset deletes every user, email reservation, task and counter, in batches
// of 500 deletes.
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range []string{tasksCollection, usersCollection, emailsCollection, countersCollection} {
		if err := s.deleteCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteCollection(ctx context.Context, name string) error {
	const batchSize = 500
	ref := s.client.Collection(name)
	for {
		iter := ref.Limit(batchSize).Documents(ctx)
		batch := s.client.Batch()
		n := 0
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return fmt.Errorf("iterate %s for delete: %w", name, err)
			}
			batch.Delete(doc.Ref)
			n++
		}
		iter.Stop()
		if n == 0 {
			return nil
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("delete batch from %s: %w", name, err)
		}
	}
}
