package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vigilbox/vigil-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam returns an exam's questions in their stored order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.QuestionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, topic, question, options, answer
		 FROM questions WHERE exam_id = $1
		 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuestionRecord
	for rows.Next() {
		var q model.QuestionRecord
		if err := rows.Scan(&q.ID, &q.Topic, &q.Question, &q.Options, &q.Answer); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ReplaceForExam swaps out the full question list of an exam in one
// transaction, bulk loading the new rows.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.QuestionRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []interface{}{examID, q.ID, q.Topic, q.Question, q.Options, q.Answer})
	}
	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"questions"},
		[]string{"exam_id", "id", "topic", "question", "options", "answer"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	return tx.Commit(ctx)
}

// SampleByTopics draws a random sample of published questions matching any
// of the given topics.
func (r *QuestionRepository) SampleByTopics(ctx context.Context, topics []string, limit int) ([]model.QuestionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.topic, q.question, q.options, q.answer
		 FROM questions q
		 JOIN exams e ON e.id = q.exam_id
		 WHERE e.status = $1 AND q.topic = ANY($2)
		 ORDER BY random()
		 LIMIT $3`, model.ExamStatusPublished, topics, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QuestionRecord
	for rows.Next() {
		var q model.QuestionRecord
		if err := rows.Scan(&q.ID, &q.Topic, &q.Question, &q.Options, &q.Answer); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListTopics returns the distinct topics available in published exams.
func (r *QuestionRepository) ListTopics(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT q.topic
		 FROM questions q
		 JOIN exams e ON e.id = q.exam_id
		 WHERE e.status = $1 AND q.topic <> ''
		 ORDER BY q.topic`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}
