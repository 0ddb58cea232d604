package recorder

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/multitouch/internal/monitoring"
)

// AttachAdminRoutes mounts a tailsql console over the session database and a
// gzip backup download under /debug/.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
	} else {
		tsql.SetDB("sqlite://"+filepath.Base(s.path), s.DB, &tailsql.DBOptions{
			Label: "Touch sessions",
		})
		debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	}

	debug.Handle("backup", "Create and download a backup of the session database now", http.HandlerFunc(s.handleBackup))
}

func (s *Store) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "touch-backup")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			monitoring.Logf("failed to remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := s.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		monitoring.Logf("failed to stream backup: %v", err)
	}
}
