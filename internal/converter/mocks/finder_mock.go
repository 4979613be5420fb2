package mocks

// MockWzFileFinder はWzFileFinderのモック実装です
type MockWzFileFinder struct {
	FoundFiles []string
	Error      error
}

// Find はモック実装です
func (m *MockWzFileFinder) Find() ([]string, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	return m.FoundFiles, nil
}
