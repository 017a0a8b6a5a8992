package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Roster     *RosterHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	if cfg.Metrics != nil {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Metrics.ServeHTTP(w, r)
		})
	}

	if cfg.Roster != nil {
		h := cfg.Roster
		mux.HandleFunc("/weeks", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			h.ListWeeks(w, r)
		})
		mux.HandleFunc("/weeks/", func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/weeks/"), "/"), "/")
			if parts[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithWeekStart(r.Context(), parts[0]))
			routeWeek(w, r, h, parts[1:])
		})
		mux.HandleFunc("/snapshots/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/snapshots/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			h.GetSnapshot(w, r, id)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// routeWeek dispatches the path segments following /weeks/{weekStart}.
func routeWeek(w http.ResponseWriter, r *http.Request, h *RosterHandler, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.GetWeek(w, r)
		return
	}

	switch rest[0] {
	case "stage":
		switch {
		case len(rest) == 1:
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			h.SaveStage(w, r)
		case len(rest) == 2 && rest[1] == "reset":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			h.ResetStage(w, r)
		default:
			http.NotFound(w, r)
		}
	case "publish":
		if len(rest) != 1 {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.Publish(w, r)
	case "shifts":
		routeShifts(w, r, h, rest[1:])
	case "snapshots":
		if len(rest) != 1 {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.ListSnapshots(w, r)
		case http.MethodPost:
			h.CreateSnapshot(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case "diff", "compliance", "coverage":
		if len(rest) != 1 {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		switch rest[0] {
		case "diff":
			h.Diff(w, r)
		case "compliance":
			h.Compliance(w, r)
		default:
			h.Coverage(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func routeShifts(w http.ResponseWriter, r *http.Request, h *RosterHandler, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.AddShift(w, r)
	case len(rest) == 1 && rest[0] == "move":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.MoveShifts(w, r)
	case len(rest) == 1:
		r = r.WithContext(ContextWithShiftID(r.Context(), rest[0]))
		switch r.Method {
		case http.MethodPut:
			h.UpdateShift(w, r)
		case http.MethodDelete:
			h.DeleteShift(w, r)
		default:
			methodNotAllowed(w, http.MethodPut, http.MethodDelete)
		}
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
