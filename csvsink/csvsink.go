// Package csvsink appends executed trades to a CSV file, one line per
// trade, as the engine's optional trade-logging boundary collaborator.
// It holds its own lock independent of the matching engine and never
// calls back into it.
package csvsink

import (
	"fmt"
	"os"
	"sync"
	"time"

	match "github.com/flux-markets/matching-engine"
)

// Header is the fixed CSV header row every file written by Sink starts
// with.
const Header = "timestamp,buyOrderID,sellOrderID,price,quantity"

// Sink is a match.TradeSink that appends each trade it receives to an
// open file as a CSV row. The timestamp column records wall-clock time
// at the moment of writing, not the trade's own timestamp field — this
// mirrors the source's behavior exactly; callers who want the trade's
// own timestamp should convert it to wall-clock before logging.
type Sink struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a Sink appending to path, writing the header row if the
// file is new (zero-length).
func New(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvsink: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvsink: stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvsink: write header: %w", err)
		}
	}

	return &Sink{file: f}, nil
}

// OnTrade implements match.TradeSink.
func (s *Sink) OnTrade(t match.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("%s,%d,%d,%d,%d\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		t.BuyOrderID, t.SellOrderID, t.Price, t.Quantity,
	)

	_, err := s.file.WriteString(line)
	return err
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.Close()
}
