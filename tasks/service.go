package tasks

import (
	"context"
	"time"

	"taskboard/models"
	"taskboard/utilities"
)

// Store is the task persistence the service runs on. UpdateTask and DeleteTask
// must run their callback and the write in one atomic unit, leaving the task
// untouched when the callback fails.
type Store interface {
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int64) (models.Task, error)
	ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id int64, mutate func(*models.Task) error) error
	DeleteTask(ctx context.Context, id int64, check func(models.Task) error) error
}

type Options struct {
	Priorities      models.PrioritySet
	DefaultPriority models.Priority
	Policy          Policy
	// PersonalFallbackAll makes a personal listing without an owner return
	// every task instead of none.
	PersonalFallbackAll bool
	Now                 func() time.Time
}

// Service filters, creates and mutates tasks on behalf of a session identity.
type Service struct {
	store           Store
	priorities      models.PrioritySet
	defaultPriority models.Priority
	policy          Policy
	fallbackAll     bool
	now             func() time.Time
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:           store,
		priorities:      opts.Priorities,
		defaultPriority: opts.DefaultPriority,
		policy:          opts.Policy,
		fallbackAll:     opts.PersonalFallbackAll,
		now:             opts.Now,
	}
	if len(s.priorities) == 0 {
		s.priorities = models.DefaultPriorities
	}
	if s.defaultPriority == "" || !s.priorities.Contains(s.defaultPriority) {
		s.defaultPriority = s.priorities[len(s.priorities)/2]
	}
	if s.policy == nil {
		s.policy = OwnerOnly
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Priorities returns the accepted priority names.
func (s *Service) Priorities() models.PrioritySet {
	return s.priorities
}

// Now is the clock used for created timestamps and chart defaults.
func (s *Service) Now() time.Time {
	return s.now()
}

// Query narrows a listing. Status and Priority values outside their sets are ignored.
type Query struct {
	Scope    models.Scope
	Status   string
	Priority string
}

// TaskInput carries the user-editable fields of a task as submitted.
// StartDate is nil when the field was not submitted at all.
type TaskInput struct {
	Title     string  `json:"title"`
	Detail    string  `json:"detail"`
	Priority  string  `json:"priority"`
	StartDate *string `json:"start_date"`
	DueDate   string  `json:"due_date"`
}

// List returns the tasks visible under q, newest first.
func (s *Service) List(ctx context.Context, who models.Identity, q Query) ([]models.Task, error) {
	var f models.TaskFilter

	if q.Scope == models.ScopePersonal {
		switch {
		case who.UserID != nil:
			owner := *who.UserID
			f.OwnerID = &owner
		case !s.fallbackAll:
			return []models.Task{}, nil
		}
	}
	if st, err := models.ParseStatus(q.Status); err == nil {
		f.Status = &st
	} else if q.Status != "" {
		utilities.LogDebug("ignoring status filter %q", q.Status)
	}
	if p, err := s.priorities.Parse(q.Priority); err == nil {
		f.Priority = &p
	} else if q.Priority != "" {
		utilities.LogDebug("ignoring priority filter %q", q.Priority)
	}

	return s.store.ListTasks(ctx, f)
}

// Get returns one task. Reading is not restricted by the ownership policy.
func (s *Service) Get(ctx context.Context, _ models.Identity, id int64) (models.Task, error) {
	return s.store.GetTask(ctx, id)
}

// Create validates in and stores a new todo task owned by who.
func (s *Service) Create(ctx context.Context, who models.Identity, in TaskInput) (models.Task, error) {
	t := models.Task{Status: models.StatusTodo}
	if err := s.apply(&t, in, s.defaultPriority); err != nil {
		return models.Task{}, err
	}
	if who.UserID != nil {
		owner := *who.UserID
		t.OwnerID = &owner
	}
	t.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.store.CreateTask(ctx, &t); err != nil {
		return models.Task{}, err
	}
	utilities.LogDebug("created task %d", t.ID)
	return t, nil
}

// UpdateStatus moves task id to status. Checks run in the order not found,
// forbidden, invalid status.
func (s *Service) UpdateStatus(ctx context.Context, who models.Identity, id int64, status string) error {
	return s.store.UpdateTask(ctx, id, func(t *models.Task) error {
		if err := s.policy(*t, who); err != nil {
			return err
		}
		st, err := models.ParseStatus(status)
		if err != nil {
			return err
		}
		t.Status = st
		return nil
	})
}

// Update replaces the title, detail, priority and due date of task id. A blank
// priority keeps the current one and a blank due date clears it. The start date
// only changes when in.StartDate is set. Nothing changes if any field is invalid.
func (s *Service) Update(ctx context.Context, who models.Identity, id int64, in TaskInput) (models.Task, error) {
	var updated models.Task
	err := s.store.UpdateTask(ctx, id, func(t *models.Task) error {
		if err := s.policy(*t, who); err != nil {
			return err
		}
		next := *t
		if err := s.apply(&next, in, t.Priority); err != nil {
			return err
		}
		*t = next
		updated = next
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return updated, nil
}

// Delete removes task id permanently.
func (s *Service) Delete(ctx context.Context, who models.Identity, id int64) error {
	return s.store.DeleteTask(ctx, id, func(t models.Task) error {
		return s.policy(t, who)
	})
}

// apply validates in and copies it onto t. t is only written once every field is valid.
func (s *Service) apply(t *models.Task, in TaskInput, fallback models.Priority) error {
	title, err := models.NormalizeTitle(in.Title)
	if err != nil {
		return err
	}
	priority := fallback
	if in.Priority != "" {
		if priority, err = s.priorities.Parse(in.Priority); err != nil {
			return err
		}
	}
	start := t.StartDate
	if in.StartDate != nil {
		if start, err = models.ParseDate("start_date", *in.StartDate); err != nil {
			return err
		}
	}
	due, err := models.ParseDate("due_date", in.DueDate)
	if err != nil {
		return err
	}

	t.Title = title
	t.Detail = in.Detail
	t.Priority = priority
	t.StartDate = start
	t.DueDate = due
	return nil
}
