// Command touch-top shows the live finger table of a running touchd in the
// terminal, polling its HTTP API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/banshee-data/multitouch/internal/api"
)

var (
	addr     = flag.String("addr", "http://localhost:8080", "Base URL of the touchd HTTP API")
	interval = flag.Duration("interval", 100*time.Millisecond, "Polling interval")
)

// snapshot is the decoded body of GET /api/touch/fingers.
type snapshot struct {
	TableLength int               `json:"table_length"`
	Fingers     []*api.FingerView `json:"fingers"`
}

// fetcher polls one touchd instance.
type fetcher struct {
	client *http.Client
	base   string
}

func newFetcher(base string, timeout time.Duration) *fetcher {
	return &fetcher{
		client: &http.Client{Timeout: timeout},
		base:   strings.TrimRight(base, "/"),
	}
}

func (f *fetcher) fetch() (snapshot, error) {
	resp, err := f.client.Get(f.base + "/api/touch/fingers")
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to query touchd: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snapshot{}, fmt.Errorf("touchd returned %s", resp.Status)
	}
	var s snapshot
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return snapshot{}, fmt.Errorf("failed to decode finger table: %w", err)
	}
	return s, nil
}

// cmd wraps fetch as a bubbletea command.
func (f *fetcher) cmd() tea.Msg {
	s, err := f.fetch()
	if err != nil {
		return errMsg{err}
	}
	return snapshotMsg(s)
}

func main() {
	flag.Parse()
	if *interval <= 0 {
		fmt.Fprintln(os.Stderr, "-interval must be positive")
		os.Exit(2)
	}

	f := newFetcher(*addr, 2*time.Second)
	p := tea.NewProgram(newModel(f.cmd, *addr, *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
