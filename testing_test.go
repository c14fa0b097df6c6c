package marlin

import "testing"

func TestMockFileSystemWriteReadRoundTrip(t *testing.T) {
	fs := NewMockFileSystem()

	if err := fs.WriteFile("test.g", []byte("G28\nG1 X10\n")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := fs.ReadFile("test.g")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "G28\nG1 X10\n" {
		t.Errorf("unexpected contents: %q", data)
	}
}

func TestMockFileSystemReadMissingFile(t *testing.T) {
	fs := NewMockFileSystem()

	if _, err := fs.ReadFile("missing.g"); err == nil {
		t.Error("expected error reading missing file")
	} else if !IsCode(err, ErrCodeNotFound) {
		t.Errorf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestMockFileSystemAppend(t *testing.T) {
	fs := NewMockFileSystem()

	fs.WriteFile("log.g", []byte("G28\n"))
	fs.AppendFile("log.g", []byte("G1 X10\n"))

	data, _ := fs.ReadFile("log.g")
	if string(data) != "G28\nG1 X10\n" {
		t.Errorf("unexpected appended contents: %q", data)
	}
}

func TestMockFileSystemDeleteAndList(t *testing.T) {
	fs := NewMockFileSystem()
	fs.WriteFile("a.g", []byte("a"))
	fs.WriteFile("b.g", []byte("bb"))

	files, err := fs.List()
	if err != nil || len(files) != 2 {
		t.Fatalf("expected 2 files, got %d, err=%v", len(files), err)
	}

	if err := fs.DeleteFile("a.g"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	files, _ = fs.List()
	if len(files) != 1 {
		t.Errorf("expected 1 file after delete, got %d", len(files))
	}

	if err := fs.DeleteFile("a.g"); err == nil {
		t.Error("expected error deleting already-deleted file")
	}
}

func TestMockFileSystemCallCounts(t *testing.T) {
	fs := NewMockFileSystem()
	fs.WriteFile("a.g", []byte("a"))
	fs.ReadFile("a.g")
	fs.ReadFile("a.g")

	counts := fs.CallCounts()
	if counts["write"] != 1 {
		t.Errorf("expected 1 write call, got %d", counts["write"])
	}
	if counts["read"] != 2 {
		t.Errorf("expected 2 read calls, got %d", counts["read"])
	}
}

func TestMockFileSystemReset(t *testing.T) {
	fs := NewMockFileSystem()
	fs.WriteFile("a.g", []byte("a"))
	fs.Reset()

	files, _ := fs.List()
	if len(files) != 0 {
		t.Errorf("expected no files after reset, got %d", len(files))
	}
	if fs.CallCounts()["write"] != 0 {
		t.Error("expected call counts cleared after reset")
	}
}

func TestMockObserverRecordsCommands(t *testing.T) {
	obs := NewMockObserver()
	obs.ObserveCommand('G', 28, true)
	obs.ObserveCommand('M', 999, false)

	if len(obs.Commands) != 2 {
		t.Fatalf("expected 2 recorded commands, got %d", len(obs.Commands))
	}
	if obs.Commands[0] != "G:handled" {
		t.Errorf("unexpected first command record: %s", obs.Commands[0])
	}
	if obs.Commands[1] != "M:unhandled" {
		t.Errorf("unexpected second command record: %s", obs.Commands[1])
	}
}

func TestMockObserverRecordsBytesAndTemperature(t *testing.T) {
	obs := NewMockObserver()
	obs.ObserveBytesIn(10)
	obs.ObserveBytesOut(20)
	obs.ObserveTemperature(0, 200.0, 210.0)

	if obs.BytesIn != 10 || obs.BytesOut != 20 {
		t.Errorf("unexpected byte counters: in=%d out=%d", obs.BytesIn, obs.BytesOut)
	}
	if obs.Temperatures[0] != 200.0 {
		t.Errorf("expected tool 0 temperature 200.0, got %v", obs.Temperatures[0])
	}
}
