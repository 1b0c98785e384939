// Package sqlstore implements repository.Store on gorm. Postgres is the
// production dialect; SQLite serves local runs and tests.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/teamalloc/internal/adapters/repository"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/pkg/logger"
	"github.com/okian/teamalloc/pkg/metrics"
)

// Dialect names a supported database.
type Dialect string

// Supported dialects.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	connMaxIdleTime    = 230 * time.Second
	connMaxLifetime    = 30 * time.Minute
)

// ErrUnsupportedDialect is returned by Open for an unknown dialect.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// Config selects and locates the database.
type Config struct {
	Dialect Dialect
	DSN     string
	// MigrationsDir holds goose SQL migrations. Empty skips goose.
	MigrationsDir string
}

// Store is a gorm-backed repository.Store.
type Store struct {
	db      *gorm.DB
	dialect Dialect
	now     func() time.Time
	logger  logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the logger used for the store and gorm.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for team timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// gormWriter routes gorm's own log lines into the service logger.
type gormWriter struct{ l logger.Logger }

func (w gormWriter) Printf(format string, args ...any) {
	w.l.Warn(context.Background(), fmt.Sprintf(format, args...))
}

// Open connects to the database. Call Migrate before use.
func Open(cfg Config, opts ...Option) (*Store, error) {
	s := &Store{dialect: cfg.Dialect, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sqlstore")
	}

	var dialector gorm.Dialector
	switch cfg.Dialect {
	case Postgres:
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN})
	case SQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormWriter{l: s.logger}, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return s.now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Dialect, err)
	}
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	if cfg.Dialect == SQLite {
		// One writer at a time; also keeps in-memory databases on one connection.
		sqlDB.SetMaxOpenConns(1)
	}

	s.db = db
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, time.Since(start))
}

// UpsertUniversity registers a university or renames an existing one.
func (s *Store) UpsertUniversity(ctx context.Context, contestID string, u model.University) error {
	defer observe("upsert_university", time.Now())
	if contestID == "" || u.ID == "" {
		return fmt.Errorf("upsert university: %w", repository.ErrInvalidUniversity)
	}
	row := universityRow{ContestID: contestID, UniversityID: u.ID, Name: u.Name}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contest_id"}, {Name: "university_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert university %s: %w", u.ID, err)
	}
	return nil
}

// AddStudents inserts a batch of students in one transaction.
func (s *Store) AddStudents(ctx context.Context, students []model.StudentRecord) error {
	defer observe("add_students", time.Now())
	if len(students) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		known := make(map[string]bool)
		batch := make(map[string]struct{}, len(students))
		rows := make([]studentRow, 0, len(students))
		for i := range students {
			st := &students[i]
			if st.ID == "" || st.ContestID == "" {
				return fmt.Errorf("student %d: %w", i, repository.ErrInvalidStudent)
			}
			key := st.ContestID + "/" + st.UniversityID
			ok, seen := known[key]
			if !seen {
				var n int64
				if err := tx.Model(&universityRow{}).
					Where("contest_id = ? AND university_id = ?", st.ContestID, st.UniversityID).
					Count(&n).Error; err != nil {
					return err
				}
				ok = n > 0
				known[key] = ok
			}
			if !ok {
				return fmt.Errorf("university %s: %w", st.UniversityID, repository.ErrNotFound)
			}
			if _, dup := batch[st.ContestID+"/"+st.ID]; dup {
				return fmt.Errorf("%w: %s", repository.ErrDuplicateStudent, st.ID)
			}
			batch[st.ContestID+"/"+st.ID] = struct{}{}
			rows = append(rows, fromStudent(st))
		}
		if err := tx.Create(&rows).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %v", repository.ErrDuplicateStudent, err)
			}
			return fmt.Errorf("add students: %w", err)
		}
		return nil
	})
}

// Universities lists a contest's universities in registration order.
func (s *Store) Universities(ctx context.Context, contestID string) ([]model.University, error) {
	defer observe("universities", time.Now())
	var rows []universityRow
	if err := s.db.WithContext(ctx).Where("contest_id = ?", contestID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("universities %s: %w", contestID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("contest %s: %w", contestID, repository.ErrNotFound)
	}
	out := make([]model.University, len(rows))
	for i := range rows {
		out[i] = model.University{ID: rows[i].UniversityID, Name: rows[i].Name}
	}
	return out, nil
}

// University returns one registered university.
func (s *Store) University(ctx context.Context, contestID, universityID string) (model.University, error) {
	defer observe("university", time.Now())
	var row universityRow
	err := s.db.WithContext(ctx).
		Where("contest_id = ? AND university_id = ?", contestID, universityID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.University{}, fmt.Errorf("university %s/%s: %w", contestID, universityID, repository.ErrNotFound)
	}
	if err != nil {
		return model.University{}, fmt.Errorf("university %s/%s: %w", contestID, universityID, err)
	}
	return model.University{ID: row.UniversityID, Name: row.Name}, nil
}

// Roster returns the university's unplaced students in registration order.
func (s *Store) Roster(ctx context.Context, contestID, universityID string) ([]model.StudentRecord, error) {
	if _, err := s.University(ctx, contestID, universityID); err != nil {
		return nil, err
	}
	defer observe("roster", time.Now())
	var rows []studentRow
	err := s.db.WithContext(ctx).
		Where("contest_id = ? AND university_id = ? AND team_id = ''", contestID, universityID).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("roster %s/%s: %w", contestID, universityID, err)
	}
	out := make([]model.StudentRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// SaveTeams stores teams and claims their members in one transaction. A
// member claimed concurrently by another run makes the claim update miss
// and rolls the whole batch back.
func (s *Store) SaveTeams(ctx context.Context, contestID, universityID string, teams []model.NamedTeam) ([]model.StoredTeam, error) {
	if _, err := s.University(ctx, contestID, universityID); err != nil {
		return nil, err
	}
	defer observe("save_teams", time.Now())

	out := make([]model.StoredTeam, 0, len(teams))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed := make(map[string]struct{})
		for i := range teams {
			t := &teams[i]
			if len(t.Members) != model.MaxUnitSize {
				return fmt.Errorf("team %q: %w: %d members", t.Name, repository.ErrInvalidTeam, len(t.Members))
			}
			var members []studentRow
			if err := tx.Where("contest_id = ? AND student_id IN ?", contestID, t.Members).Find(&members).Error; err != nil {
				return err
			}
			byID := make(map[string]*studentRow, len(members))
			for j := range members {
				byID[members[j].StudentID] = &members[j]
			}
			for _, id := range t.Members {
				m, ok := byID[id]
				if !ok || m.UniversityID != universityID {
					return fmt.Errorf("member %s: %w", id, repository.ErrNotFound)
				}
				if _, dup := claimed[id]; dup || m.TeamID != "" {
					return fmt.Errorf("%w: %s", repository.ErrAlreadyPlaced, id)
				}
				claimed[id] = struct{}{}
			}

			row := teamRow{
				TeamID:       uuid.NewString(),
				ContestID:    contestID,
				UniversityID: universityID,
				Name:         t.Name,
				Members:      t.Members,
				Names:        t.Names,
				Score:        t.Score,
				Flagged:      t.Flagged,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create team %q: %w", t.Name, err)
			}

			res := tx.Model(&studentRow{}).
				Where("contest_id = ? AND student_id IN ? AND team_id = ''", contestID, t.Members).
				Update("team_id", row.TeamID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != int64(len(t.Members)) {
				return fmt.Errorf("%w: team %q lost a member to a concurrent run", repository.ErrAlreadyPlaced, t.Name)
			}
			out = append(out, row.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Teams lists stored teams in creation order.
func (s *Store) Teams(ctx context.Context, contestID, universityID string) ([]model.StoredTeam, error) {
	defer observe("teams", time.Now())
	q := s.db.WithContext(ctx).Where("contest_id = ?", contestID)
	if universityID != "" {
		q = q.Where("university_id = ?", universityID)
	}
	var rows []teamRow
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("teams %s: %w", contestID, err)
	}
	out := make([]model.StoredTeam, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

// CountTeams counts stored teams for a university, or the contest when
// universityID is empty.
func (s *Store) CountTeams(ctx context.Context, contestID, universityID string) (int, error) {
	defer observe("count_teams", time.Now())
	q := s.db.WithContext(ctx).Model(&teamRow{}).Where("contest_id = ?", contestID)
	if universityID != "" {
		q = q.Where("university_id = ?", universityID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count teams %s: %w", contestID, err)
	}
	return int(n), nil
}
