package mocks

import (
	"context"

	"github.com/shiroemons/go-wz2nx/internal/converter/models"
	"github.com/shiroemons/go-wz2nx/pkg/nx"
)

// MockConverter はConverterのモック実装です
type MockConverter struct {
	// Output は Convert が書き込むデータです
	Output  []byte
	Entries []models.Entry
	// Errors は入力ファイルごとに返すエラーです
	Errors map[string]error
	Jobs   []models.Job
}

func (m *MockConverter) result(job models.Job) (*models.Result, error) {
	m.Jobs = append(m.Jobs, job)
	if err := m.Errors[job.Input]; err != nil {
		return nil, err
	}
	return &models.Result{
		Job:     job,
		Archive: models.ArchiveInfo{Name: job.Input, Version: job.Version},
		Kinds:   map[string]int{},
	}, nil
}

// Convert はモック実装です
func (m *MockConverter) Convert(ctx context.Context, job models.Job, out nx.Output) (*models.Result, error) {
	if len(m.Output) > 0 {
		if _, err := out.Write(m.Output); err != nil {
			return nil, err
		}
	}
	res, err := m.result(job)
	if err != nil {
		return nil, err
	}
	res.Stats = &nx.Stats{Size: int64(len(m.Output))}
	return res, nil
}

// Inspect はモック実装です
func (m *MockConverter) Inspect(ctx context.Context, job models.Job) (*models.Result, error) {
	return m.result(job)
}

// List はモック実装です
func (m *MockConverter) List(ctx context.Context, job models.Job) ([]models.Entry, error) {
	if _, err := m.result(job); err != nil {
		return nil, err
	}
	return m.Entries, nil
}
