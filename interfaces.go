package marlin

import "github.com/ehrlich-b/virtualmarlin/internal/interfaces"

// FileSystem is the storage capability backing the virtual SD card. A
// *backend.DirFS or *MockFileSystem both satisfy it.
type FileSystem = interfaces.FileSystem

// FileInfo describes one entry on the virtual SD card.
type FileInfo = interfaces.FileInfo

// Logger is the narrow logging capability the printer's subsystems depend
// on; *logging.Logger satisfies it.
type Logger = interfaces.Logger

// Observer receives runtime events for metrics collection; *Metrics
// satisfies it, as does NoOpObserver.
type Observer = interfaces.Observer
