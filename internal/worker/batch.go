package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

// Answerer answers one research question
type Answerer interface {
	Answer(ctx context.Context, question string) *model.Answer
}

// QuestionJob answers a single question
type QuestionJob struct {
	Question string
	Answerer Answerer
}

// Execute runs the question through the answerer
func (j *QuestionJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &QuestionResult{Question: j.Question, Error: err}
	}
	return &QuestionResult{
		Question: j.Question,
		Answer:   j.Answerer.Answer(ctx, j.Question),
	}
}

// QuestionResult holds the answer produced for one question
type QuestionResult struct {
	Question string
	Answer   *model.Answer
	Error    error
}

// GetError returns the error from the question result
func (r *QuestionResult) GetError() error {
	return r.Error
}

// BatchProcessor answers many questions concurrently against one answerer
type BatchProcessor struct {
	answerer Answerer
	pool     *Pool
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(answerer Answerer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		answerer: answerer,
		pool:     NewPool(concurrency),
	}
}

// ProcessQuestions answers the questions and returns results in input order
func (b *BatchProcessor) ProcessQuestions(ctx context.Context, questions []string) []*QuestionResult {
	jobs := make([]Job, len(questions))
	for i, q := range questions {
		jobs[i] = &QuestionJob{Question: q, Answerer: b.answerer}
	}

	results := b.pool.Run(ctx, jobs)

	out := make([]*QuestionResult, len(results))
	for i, r := range results {
		if r == nil {
			out[i] = &QuestionResult{Question: questions[i], Error: fmt.Errorf("not started: %w", context.Cause(ctx))}
			continue
		}
		out[i] = r.(*QuestionResult)
	}
	return out
}

// ProcessFile reads questions from a file and answers them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*QuestionResult, error) {
	questions, err := ReadQuestionsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return b.ProcessQuestions(ctx, questions), nil
}

// ReadQuestionsFromFile reads one question per line, skipping blanks,
// "#" comments and duplicates
func ReadQuestionsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var questions []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			questions = append(questions, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return questions, nil
}
