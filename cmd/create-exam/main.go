package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/vigilbox/vigil-backend/internal/config"
	"github.com/vigilbox/vigil-backend/internal/database"
	"github.com/vigilbox/vigil-backend/internal/logger"
	"github.com/vigilbox/vigil-backend/internal/model"
	"github.com/vigilbox/vigil-backend/internal/repository"
)

func main() {
	var questionsFile string
	var publish bool
	flag.StringVar(&questionsFile, "file", "questions.json", "Path to the questions JSON file")
	flag.BoolVar(&publish, "publish", false, "Publish the exam immediately")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	// ─── Load Questions ────────────────────────────────────────────────
	questions, err := loadQuestions(questionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", questionsFile).Msg("Failed to load questions")
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Exam ===")

	// Name
	fmt.Print("Enter Exam Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Exam name is required")
		return
	}

	// Duration
	duration := cfg.DefaultDurationSeconds
	fmt.Printf("Enter Duration in seconds (default %d): ", duration)
	durationStr, _ := reader.ReadString('\n')
	durationStr = strings.TrimSpace(durationStr)
	if durationStr != "" {
		d, err := strconv.Atoi(durationStr)
		if err != nil || d <= 0 {
			fmt.Println("Error: Duration must be a positive number")
			return
		}
		duration = d
	}

	// Violation budget
	maxViolations := cfg.MaxViolations
	fmt.Printf("Enter Max Violations (default %d): ", maxViolations)
	maxStr, _ := reader.ReadString('\n')
	maxStr = strings.TrimSpace(maxStr)
	if maxStr != "" {
		m, err := strconv.Atoi(maxStr)
		if err != nil || m <= 0 {
			fmt.Println("Error: Max violations must be a positive number")
			return
		}
		maxViolations = m
	}

	// Shuffle
	fmt.Print("Shuffle questions per session? (y/N): ")
	shuffleStr, _ := reader.ReadString('\n')
	shuffle := strings.EqualFold(strings.TrimSpace(shuffleStr), "y")

	// Access code, hidden input. Empty means the exam is open.
	fmt.Print("Enter Access Code (empty for open exam): ")
	byteCode, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading access code")
		return
	}
	accessCode := string(byteCode)
	fmt.Println() // Newline after hidden input

	// ─── Logic ─────────────────────────────────────────────────────────
	accessCodeHash := ""
	if accessCode != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(accessCode), cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash access code")
		}
		accessCodeHash = string(hashed)
	}

	exam := &model.Exam{
		Name:             name,
		DurationSeconds:  duration,
		MaxViolations:    maxViolations,
		AccessCodeHash:   accessCodeHash,
		ShuffleQuestions: shuffle,
		Status:           model.ExamStatusDraft,
	}

	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	if err := questionRepo.ReplaceForExam(ctx, exam.ID, questions); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}

	if publish {
		if err := examRepo.UpdateStatus(ctx, exam.ID, model.ExamStatusPublished); err != nil {
			log.Fatal().Err(err).Msg("Failed to publish exam")
		}
	}

	fmt.Printf("\nSuccess! Exam '%s' created with ID: %s (%d questions, status %s)\n",
		exam.Name, exam.ID, len(questions), examStatus(publish))
}

func examStatus(published bool) model.ExamStatus {
	if published {
		return model.ExamStatusPublished
	}
	return model.ExamStatusDraft
}

// loadQuestions parses and sanity-checks the questions file.
func loadQuestions(path string) ([]model.QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var questions []model.QuestionRecord
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("file contains no questions")
	}

	seen := make(map[int]struct{}, len(questions))
	for i, q := range questions {
		if q.ID < 1 {
			return nil, fmt.Errorf("question %d: id must be >= 1", i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = struct{}{}
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("question %d: text is required", q.ID)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("question %d: at least two options required", q.ID)
		}
		if len(q.Answer) == 0 {
			return nil, fmt.Errorf("question %d: answer is required", q.ID)
		}
	}
	return questions, nil
}
