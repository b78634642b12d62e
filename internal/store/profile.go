package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/Pavansyamala/agenticAItutor/internal/mastery"
)

// profileRepo implements ProfileRepo.
type profileRepo struct {
	db *sql.DB
}

var profileColumns = []string{
	"student_id", "name", "overall_score", "risk_score", "misconceptions", "created_at", "updated_at",
}

func (r *profileRepo) Get(ctx context.Context, studentID string) (*Profile, error) {
	return getProfile(ctx, r.db, studentID)
}

func (r *profileRepo) Create(ctx context.Context, p *Profile) error {
	if p.StudentID == "" {
		return errors.New("create profile: empty student id")
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query, args := builder.Insert(profilesTable.Name).
		Columns(profileColumns...).
		Values(p.StudentID, p.Name, p.OverallScore, p.RiskScore, encodeStrings(p.Misconceptions), p.CreatedAt, p.UpdatedAt).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert profile %s: %w", p.StudentID, err)
	}
	for _, topic := range p.Mastery.Topics() {
		if _, err := upsertMastery(ctx, tx, p.StudentID, topic, p.Mastery.Get(topic), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *profileRepo) Ensure(ctx context.Context, studentID string) (*Profile, error) {
	if err := ensureProfile(ctx, r.db, studentID); err != nil {
		return nil, err
	}
	return getProfile(ctx, r.db, studentID)
}

func (r *profileRepo) List(ctx context.Context) ([]Profile, error) {
	query, args := builder.Select(profileColumns...).
		From(entsql.Table(profilesTable.Name)).
		OrderBy("student_id").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	for i := range out {
		m, err := masteryMap(ctx, r.db, out[i].StudentID)
		if err != nil {
			return nil, err
		}
		out[i].Mastery = m
	}
	return out, nil
}

func (r *profileRepo) UpdateMastery(ctx context.Context, studentID, topic string, score float64) (float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ensureProfile(ctx, tx, studentID); err != nil {
		return 0, err
	}
	_, next, err := applyMastery(ctx, tx, studentID, topic, score)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mastery: %w", err)
	}
	return next, nil
}

func (r *profileRepo) MasteryMap(ctx context.Context, studentID string) (mastery.Map, error) {
	return masteryMap(ctx, r.db, studentID)
}

func (r *profileRepo) RecentScores(ctx context.Context, studentID, topic string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, nil
	}
	query, args := builder.Select("score").
		From(entsql.Table(historyTable.Name)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("topic", topic),
			entsql.EQ("event_type", EventEvalCompleted),
			entsql.NotNull("score"),
		)).
		OrderBy(entsql.Desc("sequence")).
		Limit(n).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent scores: %w", err)
	}
	// Newest first from the query; callers want oldest first.
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}
	return scores, nil
}

// getProfile loads a profile with its mastery map, or nil when missing.
func getProfile(ctx context.Context, q execQuerier, studentID string) (*Profile, error) {
	query, args := builder.Select(profileColumns...).
		From(entsql.Table(profilesTable.Name)).
		Where(entsql.EQ("student_id", studentID)).
		Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", studentID, err)
	}
	var p *Profile
	if rows.Next() {
		p, err = scanProfile(rows)
	}
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = rows.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", studentID, err)
	}
	if p == nil {
		return nil, nil
	}

	p.Mastery, err = masteryMap(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanProfile(rows *sql.Rows) (*Profile, error) {
	var (
		p   Profile
		raw string
	)
	if err := rows.Scan(&p.StudentID, &p.Name, &p.OverallScore, &p.RiskScore, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Misconceptions = decodeStrings(raw)
	return &p, nil
}

// ensureProfile inserts an empty profile unless one exists.
func ensureProfile(ctx context.Context, q execQuerier, studentID string) error {
	if studentID == "" {
		return errors.New("ensure profile: empty student id")
	}
	now := time.Now().UTC()
	query, args := builder.Insert(profilesTable.Name).
		Columns(profileColumns...).
		Values(studentID, "", 0.0, 0.0, "[]", now, now).
		OnConflict(entsql.ConflictColumns("student_id"), entsql.DoNothing()).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure profile %s: %w", studentID, err)
	}
	return nil
}

func masteryMap(ctx context.Context, q execQuerier, studentID string) (mastery.Map, error) {
	query, args := builder.Select("topic", "value").
		From(entsql.Table(masteryTable.Name)).
		Where(entsql.EQ("student_id", studentID)).
		Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mastery map %s: %w", studentID, err)
	}
	defer rows.Close()

	m := mastery.Map{}
	for rows.Next() {
		var (
			topic string
			value float64
		)
		if err := rows.Scan(&topic, &value); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		m[topic] = value
	}
	return m, rows.Err()
}

// currentMastery returns the stored value for topic, 0 when absent.
func currentMastery(ctx context.Context, q execQuerier, studentID, topic string) (float64, error) {
	query, args := builder.Select("value").
		From(entsql.Table(masteryTable.Name)).
		Where(entsql.And(entsql.EQ("student_id", studentID), entsql.EQ("topic", topic))).
		Query()
	var v float64
	err := q.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read mastery %s/%s: %w", studentID, topic, err)
	}
	return v, nil
}

// applyMastery blends score into the stored value and writes the result.
func applyMastery(ctx context.Context, q execQuerier, studentID, topic string, score float64) (prev, next float64, err error) {
	prev, err = currentMastery(ctx, q, studentID, topic)
	if err != nil {
		return 0, 0, err
	}
	next, err = upsertMastery(ctx, q, studentID, topic, mastery.Update(prev, score), time.Now().UTC())
	if err != nil {
		return 0, 0, err
	}
	return prev, next, nil
}

// upsertMastery writes value for topic. The stored value never decreases,
// even if another writer raced ahead.
func upsertMastery(ctx context.Context, q execQuerier, studentID, topic string, value float64, at time.Time) (float64, error) {
	query, args := builder.Insert(masteryTable.Name).
		Columns("student_id", "topic", "value", "updated_at").
		Values(studentID, topic, value, at).
		OnConflict(
			entsql.ConflictColumns("student_id", "topic"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Set("value", entsql.Expr("MAX(value, excluded.value)"))
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upsert mastery %s/%s: %w", studentID, topic, err)
	}
	return currentMastery(ctx, q, studentID, topic)
}
