// Copyright (C) 2024 right-sizer contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package metricsink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"autoscalerd/logger"
)

// FileSink appends every Sample as a CSV row (timestamp,name,value)
// for offline analysis.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewFileSink opens (creating if needed) runDir/name.csv and returns a
// FileSink appending to it. runDir is created if it does not exist.
func NewFileSink(runDir, name string) (*FileSink, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("metricsink: create run dir %s: %w", runDir, err)
	}
	path := filepath.Join(runDir, name+".csv")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("metricsink: open %s: %w", path, err)
	}
	return &FileSink{file: f, writer: csv.NewWriter(f)}, nil
}

func (s *FileSink) Emit(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := []string{
		strconv.FormatInt(sample.At.UnixNano(), 10),
		sample.Name,
		strconv.FormatFloat(sample.Value, 'g', -1, 64),
	}
	if err := s.writer.Write(row); err != nil {
		logger.Error("metricsink: file sink write failed: %v", err)
		return
	}
	s.writer.Flush()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	return s.file.Close()
}

// LogSink emits every Sample as a structured log line at debug level.
type LogSink struct{}

func (LogSink) Emit(s Sample) {
	logger.Debug("metric %s=%v at=%s", s.Name, s.Value, s.At.Format("15:04:05.000"))
}

func (LogSink) Close() error { return nil }
