package marlin

import (
	"sync"
	"time"

	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
)

// MockFileSystem is an in-memory FileSystem for testing the SD card
// subsystem without touching disk. It tracks method calls for verification,
// the way the test doubles elsewhere in this module do.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte

	listCalls   int
	readCalls   int
	writeCalls  int
	appendCalls int
	deleteCalls int
	statCalls   int
}

// NewMockFileSystem creates an empty mock SD card.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{files: make(map[string][]byte)}
}

// Seed preloads a file, bypassing call tracking — useful for test setup.
func (m *MockFileSystem) Seed(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
}

func (m *MockFileSystem) List() ([]interfaces.FileInfo, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]interfaces.FileInfo, 0, len(m.files))
	for name, data := range m.files {
		infos = append(infos, interfaces.FileInfo{Name: name, Size: int64(len(data))})
	}
	return infos, nil
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	m.readCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, NewError("ReadFile", ErrCodeNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

func (m *MockFileSystem) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *MockFileSystem) AppendFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCalls++
	m.files[name] = append(m.files[name], data...)
	return nil
}

func (m *MockFileSystem) DeleteFile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if _, ok := m.files[name]; !ok {
		return NewError("DeleteFile", ErrCodeNotFound, name)
	}
	delete(m.files, name)
	return nil
}

func (m *MockFileSystem) Stat(name string) (interfaces.FileInfo, error) {
	m.mu.Lock()
	m.statCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return interfaces.FileInfo{}, NewError("Stat", ErrCodeNotFound, name)
	}
	return interfaces.FileInfo{Name: name, Size: int64(len(data)), ModTime: time.Time{}.Unix()}, nil
}

// CallCounts returns the number of times each method has been called, for
// tests that assert on interaction counts rather than just outcomes.
func (m *MockFileSystem) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"list":   m.listCalls,
		"read":   m.readCalls,
		"write":  m.writeCalls,
		"append": m.appendCalls,
		"delete": m.deleteCalls,
		"stat":   m.statCalls,
	}
}

// Reset clears all files and call counters.
func (m *MockFileSystem) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string][]byte)
	m.listCalls, m.readCalls, m.writeCalls, m.appendCalls, m.deleteCalls, m.statCalls = 0, 0, 0, 0, 0, 0
}

// MockObserver records every observation it receives, for tests that need
// to assert on what the printer reported without wiring a real Metrics.
type MockObserver struct {
	mu           sync.Mutex
	Commands     []string
	Resends      []int
	BytesIn      uint64
	BytesOut     uint64
	Temperatures map[int]float64
	QueueDepths  []uint32
}

// NewMockObserver creates an empty MockObserver.
func NewMockObserver() *MockObserver {
	return &MockObserver{Temperatures: make(map[int]float64)}
}

func (o *MockObserver) ObserveCommand(letter byte, code int, handled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state := "unhandled"
	if handled {
		state = "handled"
	}
	o.Commands = append(o.Commands, string(letter)+":"+state)
}

func (o *MockObserver) ObserveResend(lineNo int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Resends = append(o.Resends, lineNo)
}

func (o *MockObserver) ObserveBytesIn(n uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.BytesIn += n
}

func (o *MockObserver) ObserveBytesOut(n uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.BytesOut += n
}

func (o *MockObserver) ObserveTemperature(tool int, current, target float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Temperatures[tool] = current
}

func (o *MockObserver) ObserveQueueDepth(depth uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.QueueDepths = append(o.QueueDepths, depth)
}

// Compile-time interface checks.
var (
	_ interfaces.FileSystem = (*MockFileSystem)(nil)
	_ interfaces.Observer   = (*MockObserver)(nil)
)
