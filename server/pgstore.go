package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type PgStore struct {
	db *sql.DB
}

func NewPgStore(db *sql.DB) *PgStore { return &PgStore{db: db} }

func (s *PgStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// --- Users & sessions ---

func (s *PgStore) CreateUser(ctx context.Context, email, passwordHash, name string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `insert into users(email, password_hash, name) values($1,$2,$3)
		returning id, email, name, created_at`, email, passwordHash, name).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *PgStore) userCredsByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `select id, email, name, created_at, password_hash from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	return u, hash, err
}

func (s *PgStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.userCredsByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *PgStore) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	// 32 random bytes, base64 URL encoded
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	expires := time.Now().Add(ttl)
	_, err := s.db.ExecContext(ctx, `insert into sessions(user_id, token, expires_at) values($1,$2,$3)`, userID, token, expires)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *PgStore) UserBySession(ctx context.Context, token string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select u.id, u.email, u.name, u.created_at
		from sessions s join users u on u.id=s.user_id
		where s.token=$1 and s.expires_at > now()`, token).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *PgStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token=$1`, token)
	return err
}

func (s *PgStore) userByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select id, email, name, created_at from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// EnsureOAuthUser links or creates a user for given provider and provider_user_id.
func (s *PgStore) EnsureOAuthUser(ctx context.Context, provider, providerUserID, email, name string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select u.id, u.email, u.name, u.created_at
		from oauth_accounts oa join users u on u.id = oa.user_id
		where oa.provider=$1 and oa.provider_user_id=$2`, provider, providerUserID).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	switch {
	case err == nil:
		return u, nil
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, err
	}
	haveUser, err := s.userByEmail(ctx, email)
	notFound := errors.Is(err, ErrNotFound)
	if err != nil && !notFound {
		return User{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()
	if notFound {
		err = tx.QueryRowContext(ctx, `insert into users(email, password_hash, name) values($1,$2,$3)
			returning id, email, name, created_at`, email, "", name).
			Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
		if err != nil {
			return User{}, err
		}
	} else {
		u = haveUser
	}
	if _, err = tx.ExecContext(ctx, `insert into oauth_accounts(user_id, provider, provider_user_id) values($1,$2,$3)
			on conflict (provider, provider_user_id) do nothing`, u.ID, provider, providerUserID); err != nil {
		return User{}, err
	}
	if err = tx.Commit(); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PgStore) UpdateUserPasswordByEmail(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `update users set password_hash=$1 where lower(email)=lower($2)`, string(hash), email)
	return err
}

func (s *PgStore) UpdateUserName(ctx context.Context, userID int64, name string) error {
	res, err := s.db.ExecContext(ctx, `update users set name=$1 where id=$2`, name, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Habits ---

const habitCols = `id, user_id, title, description, time_of_day, date, status, is_default, created_at, updated_at`

func scanHabit(row interface{ Scan(...any) error }) (Habit, error) {
	var h Habit
	err := row.Scan(&h.ID, &h.UserID, &h.Title, &h.Description, &h.TimeOfDay, &h.Date, &h.Status, &h.IsDefault, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (s *PgStore) HabitsByDate(ctx context.Context, userID int64, date string) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+habitCols+` from habits where user_id=$1 and date=$2 order by created_at, id`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SeedHabits inserts the default set in one transaction so a half-seeded
// date can never be observed.
func (s *PgStore) SeedHabits(ctx context.Context, habits []Habit) ([]Habit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	out := make([]Habit, 0, len(habits))
	for _, h := range habits {
		h.ID = uuid.NewString()
		inserted, err := scanHabit(tx.QueryRowContext(ctx,
			`insert into habits(id, user_id, title, description, time_of_day, date, status, is_default)
			 values($1,$2,$3,$4,$5,$6,$7,$8) returning `+habitCols,
			h.ID, h.UserID, h.Title, h.Description, h.TimeOfDay, h.Date, h.Status, h.IsDefault))
		if err != nil {
			return nil, fmt.Errorf("seed habits: %w", err)
		}
		out = append(out, inserted)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgStore) CreateHabit(ctx context.Context, h Habit) (Habit, error) {
	h.ID = uuid.NewString()
	created, err := scanHabit(s.db.QueryRowContext(ctx,
		`insert into habits(id, user_id, title, description, time_of_day, date, status, is_default)
		 values($1,$2,$3,$4,$5,$6,$7,$8) returning `+habitCols,
		h.ID, h.UserID, h.Title, h.Description, h.TimeOfDay, h.Date, h.Status, h.IsDefault))
	if err != nil {
		return Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return created, nil
}

func (s *PgStore) GetHabit(ctx context.Context, userID int64, id string) (Habit, error) {
	h, err := scanHabit(s.db.QueryRowContext(ctx,
		`select `+habitCols+` from habits where id=$1 and user_id=$2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Habit{}, ErrNotFound
	}
	return h, err
}

func (s *PgStore) UpdateHabit(ctx context.Context, userID int64, id string, p HabitPatch) (Habit, error) {
	cur, err := s.GetHabit(ctx, userID, id)
	if err != nil {
		return Habit{}, err
	}
	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.TimeOfDay != nil {
		cur.TimeOfDay = *p.TimeOfDay
	}
	if p.Status != nil {
		cur.Status = *p.Status
	}
	h, err := scanHabit(s.db.QueryRowContext(ctx,
		`update habits set title=$1, description=$2, time_of_day=$3, status=$4, updated_at=now()
		 where id=$5 and user_id=$6 returning `+habitCols,
		cur.Title, cur.Description, cur.TimeOfDay, cur.Status, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Habit{}, ErrNotFound
	}
	if err != nil {
		return Habit{}, fmt.Errorf("update habit: %w", err)
	}
	return h, nil
}

func (s *PgStore) DeleteHabit(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from habits where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) MoveHabit(ctx context.Context, userID int64, id, bucket string) (Habit, bool, error) {
	cur, err := s.GetHabit(ctx, userID, id)
	if err != nil {
		return Habit{}, false, err
	}
	if cur.TimeOfDay == bucket {
		return cur, false, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Habit{}, false, err
	}
	defer func() { _ = tx.Rollback() }()
	h, err := scanHabit(tx.QueryRowContext(ctx,
		`update habits set time_of_day=$1, status=$2, updated_at=now()
		 where id=$3 and user_id=$4 returning `+habitCols,
		bucket, statusForBucket(bucket), id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Habit{}, false, ErrNotFound
	}
	if err != nil {
		return Habit{}, false, fmt.Errorf("move habit: %w", err)
	}
	if bucket == BucketCompleted {
		if _, err := tx.ExecContext(ctx,
			`insert into history(id, user_id, habit_id, date, status) values($1,$2,$3,$4,$5)`,
			uuid.NewString(), userID, h.ID, h.Date, StatusCompleted); err != nil {
			return Habit{}, false, fmt.Errorf("append history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Habit{}, false, err
	}
	return h, true, nil
}

// --- Tasks ---

const taskCols = `id, user_id, title, description, coalesce(scheduled_time,''), status, date, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.ScheduledTime, &t.Status, &t.Date, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *PgStore) TasksByDate(ctx context.Context, userID int64, date string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+taskCols+` from tasks where user_id=$1 and date=$2 order by created_at, id`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PgStore) SeedTasks(ctx context.Context, tasks []Task) ([]Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		t.ID = uuid.NewString()
		inserted, err := scanTask(tx.QueryRowContext(ctx,
			`insert into tasks(id, user_id, title, description, scheduled_time, status, date)
			 values($1,$2,$3,$4,$5,$6,$7) returning `+taskCols,
			t.ID, t.UserID, t.Title, t.Description, nullable(t.ScheduledTime), t.Status, t.Date))
		if err != nil {
			return nil, fmt.Errorf("seed tasks: %w", err)
		}
		out = append(out, inserted)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	t.ID = uuid.NewString()
	created, err := scanTask(s.db.QueryRowContext(ctx,
		`insert into tasks(id, user_id, title, description, scheduled_time, status, date)
		 values($1,$2,$3,$4,$5,$6,$7) returning `+taskCols,
		t.ID, t.UserID, t.Title, t.Description, nullable(t.ScheduledTime), t.Status, t.Date))
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

func (s *PgStore) GetTask(ctx context.Context, userID int64, id string) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`select `+taskCols+` from tasks where id=$1 and user_id=$2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *PgStore) UpdateTask(ctx context.Context, userID int64, id string, p TaskPatch) (Task, error) {
	cur, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}
	if p.Title != nil {
		cur.Title = *p.Title
	}
	if p.Description != nil {
		cur.Description = *p.Description
	}
	if p.ScheduledTime != nil {
		cur.ScheduledTime = *p.ScheduledTime
	}
	if p.Status != nil {
		cur.Status = *p.Status
	}
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`update tasks set title=$1, description=$2, scheduled_time=$3, status=$4, updated_at=now()
		 where id=$5 and user_id=$6 returning `+taskCols,
		cur.Title, cur.Description, nullable(cur.ScheduledTime), cur.Status, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

func (s *PgStore) DeleteTask(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) MoveTask(ctx context.Context, userID int64, id, status string) (Task, bool, error) {
	cur, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return Task{}, false, err
	}
	if cur.Status == status {
		return cur, false, nil
	}
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`update tasks set status=$1, updated_at=now() where id=$2 and user_id=$3 returning `+taskCols,
		status, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, false, ErrNotFound
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("move task: %w", err)
	}
	return t, true, nil
}

// --- Notes ---

const noteCols = `id, user_id, date, note_content, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (DailyNote, error) {
	var n DailyNote
	err := row.Scan(&n.ID, &n.UserID, &n.Date, &n.NoteContent, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (s *PgStore) NoteByDate(ctx context.Context, userID int64, date string) (DailyNote, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx,
		`select `+noteCols+` from daily_notes where user_id=$1 and date=$2 order by created_at limit 1`, userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return DailyNote{}, ErrNotFound
	}
	return n, err
}

// SaveNote upserts by query-then-branch: select the row id for (user,date),
// update if found, insert otherwise. Two racing writers both succeed and
// the later one wins; there is deliberately no unique constraint.
func (s *PgStore) SaveNote(ctx context.Context, userID int64, date, content string) (DailyNote, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`select id from daily_notes where user_id=$1 and date=$2 order by created_at limit 1`, userID, date).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		n, err := scanNote(s.db.QueryRowContext(ctx,
			`insert into daily_notes(id, user_id, date, note_content) values($1,$2,$3,$4) returning `+noteCols,
			uuid.NewString(), userID, date, content))
		if err != nil {
			return DailyNote{}, fmt.Errorf("insert note: %w", err)
		}
		return n, nil
	case err != nil:
		return DailyNote{}, err
	}
	n, err := scanNote(s.db.QueryRowContext(ctx,
		`update daily_notes set note_content=$1, updated_at=now() where id=$2 returning `+noteCols,
		content, id))
	if err != nil {
		return DailyNote{}, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

// --- History & analytics ---

func (s *PgStore) History(ctx context.Context, userID int64, from, to string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select h.id, h.user_id, h.habit_id, coalesce(hb.title,''), h.date, h.status, h.created_at
		 from history h left join habits hb on hb.id=h.habit_id
		 where h.user_id=$1 and h.date>=$2 and h.date<=$3
		 order by h.date desc, h.created_at desc`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.HabitID, &e.HabitTitle, &e.Date, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) HabitsInRange(ctx context.Context, userID int64, from, to string) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+habitCols+` from habits where user_id=$1 and date>=$2 and date<=$3 order by date, created_at`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

const schema = `
create table if not exists users(
	id bigserial primary key,
	email text unique not null,
	password_hash text not null default '',
	name text not null default '',
	created_at timestamptz not null default now()
);

create table if not exists oauth_accounts(
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	provider text not null,
	provider_user_id text not null,
	unique(provider, provider_user_id)
);

create table if not exists sessions(
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	token text unique not null,
	created_at timestamptz not null default now(),
	expires_at timestamptz not null
);

create table if not exists habits(
	id uuid primary key,
	user_id bigint not null references users(id) on delete cascade,
	title text not null check (length(title) > 0),
	description text not null default '',
	time_of_day text not null check (time_of_day in ('morning','afternoon','evening','completed')),
	date text not null,
	status text not null default 'pending' check (status in ('pending','completed','skipped')),
	is_default boolean not null default false,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);
create index if not exists habits_user_date_idx on habits(user_id, date);

create table if not exists tasks(
	id uuid primary key,
	user_id bigint not null references users(id) on delete cascade,
	title text not null check (length(title) > 0),
	description text not null default '',
	scheduled_time text,
	status text not null default 'todo' check (status in ('todo','in_progress','done')),
	date text not null,
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);
create index if not exists tasks_user_date_idx on tasks(user_id, date);

-- No unique constraint on (user_id, date): the application upserts by
-- querying first, matching the original store's behavior.
create table if not exists daily_notes(
	id uuid primary key,
	user_id bigint not null references users(id) on delete cascade,
	date text not null,
	note_content text not null default '',
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);
create index if not exists daily_notes_user_date_idx on daily_notes(user_id, date);

-- Append-only; rows are never updated or deleted by the application.
create table if not exists history(
	id uuid primary key,
	user_id bigint not null references users(id) on delete cascade,
	habit_id uuid not null,
	date text not null,
	status text not null,
	created_at timestamptz not null default now()
);
create index if not exists history_user_date_idx on history(user_id, date);
`
